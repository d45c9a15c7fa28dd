package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainproof/walletscore/internal/attestation"
	"github.com/chainproof/walletscore/internal/canonical"
	"github.com/chainproof/walletscore/internal/enclave"
	"github.com/chainproof/walletscore/internal/logging"
	"github.com/chainproof/walletscore/internal/metrics"
	"github.com/chainproof/walletscore/internal/signer"
)

// Service runs the ledger-side admission logic over an enclave store and a
// score store.
type Service struct {
	scores   Store
	enclaves enclave.Store
}

// NewService creates the admission service.
func NewService(scores Store, enclaves enclave.Store) *Service {
	return &Service{scores: scores, enclaves: enclaves}
}

// RegisterSigner validates an attestation document against the active
// enclave config and, on success, stores an immutable signer record. Runs
// once per deployed signer, not per submission. Any failure leaves no
// partial record.
func (s *Service) RegisterSigner(ctx context.Context, rawDocument []byte) (*enclave.Record, error) {
	doc, err := attestation.Parse(rawDocument)
	if err != nil {
		metrics.SignerRegistrationsTotal.WithLabelValues("malformed").Inc()
		return nil, err
	}

	cfg, err := s.enclaves.Config(ctx)
	if err != nil {
		metrics.SignerRegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := doc.Verify(cfg.Measurements); err != nil {
		metrics.SignerRegistrationsTotal.WithLabelValues("measurement_mismatch").Inc()
		return nil, err
	}

	rec := &enclave.Record{
		PublicKey:     doc.PublicKey,
		ConfigVersion: cfg.Version,
		RegisteredAt:  time.Now().UTC(),
	}
	if err := s.enclaves.CreateRecord(ctx, rec); err != nil {
		metrics.SignerRegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.SignerRegistrationsTotal.WithLabelValues("registered").Inc()
	logging.L(ctx).Info("signer registered",
		"config_version", rec.ConfigVersion)
	return rec, nil
}

// UpdateConfig replaces the approved measurements. Requires the capability
// token issued at bootstrap; each update bumps the config version.
func (s *Service) UpdateConfig(ctx context.Context, capability string, measurements [][]byte) (*enclave.Config, error) {
	if len(measurements) != attestation.MeasurementCount {
		return nil, fmt.Errorf("%w: expected %d measurements, got %d",
			attestation.ErrMalformedDocument, attestation.MeasurementCount, len(measurements))
	}
	for i, m := range measurements {
		if len(m) != attestation.MeasurementSize {
			return nil, fmt.Errorf("%w: measurement %d is %d bytes, expected %d",
				attestation.ErrMalformedDocument, i, len(m), attestation.MeasurementSize)
		}
	}
	cfg, err := s.enclaves.UpdateConfig(ctx, capability, measurements)
	if err != nil {
		return nil, err
	}
	logging.L(ctx).Info("enclave config updated", "version", cfg.Version)
	return cfg, nil
}

// SubmitScore runs the per-submission state machine, terminal on first
// failure:
//
//  1. verify the environment signature over the re-derived canonical
//     envelope against a registered signer key,
//  2. verify the wallet-ownership signature over the authorization string,
//  3. insert the score record and advance the latest pointer.
//
// On any failure the ledger state is untouched.
func (s *Service) SubmitScore(ctx context.Context, sub Submission) (*ScoreRecord, error) {
	if err := s.verifyEnvironmentSignature(ctx, sub); err != nil {
		metrics.AdmissionsTotal.WithLabelValues(admissionResult(err)).Inc()
		return nil, err
	}

	if err := verifyOwnershipSignature(sub); err != nil {
		metrics.AdmissionsTotal.WithLabelValues(admissionResult(err)).Inc()
		return nil, err
	}

	rec := &ScoreRecord{
		TimestampMS:   sub.TimestampMS,
		Score:         sub.Score,
		WalletAddress: strings.ToLower(sub.WalletAddress),
		AdmittedAt:    time.Now().UTC(),
	}
	if err := s.scores.Insert(ctx, rec); err != nil {
		metrics.AdmissionsTotal.WithLabelValues(admissionResult(err)).Inc()
		return nil, err
	}

	metrics.AdmissionsTotal.WithLabelValues("admitted").Inc()
	logging.L(ctx).Info("score admitted",
		"wallet", rec.WalletAddress, "score", rec.Score, "timestamp_ms", rec.TimestampMS)
	return rec, nil
}

// Latest returns the record under the latest pointer.
func (s *Service) Latest(ctx context.Context) (*ScoreRecord, error) {
	return s.scores.Latest(ctx)
}

// History lists admitted scores for a wallet, newest first.
func (s *Service) History(ctx context.Context, walletAddress string, limit int) ([]*ScoreRecord, error) {
	return s.scores.History(ctx, walletAddress, limit)
}

// verifyEnvironmentSignature recovers the signing key from the 65-byte
// recoverable signature over the canonical digest, requires a registered
// signer record for it, then verifies the signature proper.
func (s *Service) verifyEnvironmentSignature(ctx context.Context, sub Submission) error {
	if len(sub.EnvironmentSignature) != signer.SignatureLength {
		return ErrMalformedSignature
	}

	env := canonical.NewScoreEnvelope(sub.Score, sub.WalletAddress, sub.TimestampMS)
	digest := canonical.Digest(env)

	sig := normalizeRecoveryID(sub.EnvironmentSignature)
	rawPub, err := crypto.Ecrecover(digest[:], sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnvironmentSignature, err)
	}
	pub, err := crypto.UnmarshalPubkey(rawPub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnvironmentSignature, err)
	}
	compressed := crypto.CompressPubkey(pub)

	if _, err := s.enclaves.Record(ctx, compressed); err != nil {
		if errors.Is(err, enclave.ErrRecordNotFound) {
			return ErrUnknownSigner
		}
		return err
	}

	if !crypto.VerifySignature(compressed, digest[:], sig[:64]) {
		return ErrEnvironmentSignature
	}
	return nil
}

// verifyOwnershipSignature checks the wallet-ownership proof: the standard
// personal-message prefix over the authorization string, keccak256, address
// recovery, and a case-insensitive comparison against the claimed wallet.
func verifyOwnershipSignature(sub Submission) error {
	if len(sub.WalletSignature) != signer.SignatureLength {
		return ErrMalformedSignature
	}

	msg := OwnershipMessage(sub.Score, sub.WalletAddress, sub.TimestampMS)
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	hash := crypto.Keccak256([]byte(prefixed))

	sig := normalizeRecoveryID(sub.WalletSignature)
	rawPub, err := crypto.Ecrecover(hash, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOwnershipMismatch, err)
	}
	pub, err := crypto.UnmarshalPubkey(rawPub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOwnershipMismatch, err)
	}

	recovered := crypto.PubkeyToAddress(*pub).Hex()
	if !strings.EqualFold(recovered, sub.WalletAddress) {
		return ErrOwnershipMismatch
	}
	return nil
}

// normalizeRecoveryID maps the legacy 27/28 recovery id convention used by
// wallet tooling onto the 0/1 convention Ecrecover expects. Returns a copy;
// the submission is never mutated.
func normalizeRecoveryID(sig []byte) []byte {
	out := append([]byte(nil), sig...)
	if out[64] >= 27 {
		out[64] -= 27
	}
	return out
}

func admissionResult(err error) string {
	switch {
	case errors.Is(err, ErrMalformedSignature):
		return "malformed_signature"
	case errors.Is(err, ErrUnknownSigner):
		return "unknown_signer"
	case errors.Is(err, ErrDuplicateTimestamp):
		return "duplicate_timestamp"
	case errors.Is(err, ErrOwnershipMismatch):
		return "bad_ownership_signature"
	case errors.Is(err, ErrEnvironmentSignature):
		return "bad_environment_signature"
	default:
		return "error"
	}
}
