// Package orchestrator composes field, vault, oprf, rsakeygen and store
// into the enrol/verify protocol phases and session-key transport
// (spec.md §4.5), in the style of the teacher's issuance flow.
package orchestrator

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/MaxWarman/BRAKE/field"
	"github.com/MaxWarman/BRAKE/internal/telemetry"
	"github.com/MaxWarman/BRAKE/oprf"
	"github.com/MaxWarman/BRAKE/rsakeygen"
	"github.com/MaxWarman/BRAKE/store"
	"github.com/MaxWarman/BRAKE/vault"
)

// ErrVerificationFailed is returned by Verify when the decoder recovers no
// candidate, and by RecoverSessionKey when the reconstructed key material
// does not decrypt the server's session key (spec.md §7: "do not
// distinguish wrong-key from ciphertext corruption to the client").
var ErrVerificationFailed = errors.New("orchestrator: verification failed")

// SessionKeyLen is the fixed session-key size spec.md §4.5.3 requires.
const SessionKeyLen = 32

// PBKDF2Iterations is the fixed iteration count spec.md §4.5.3 requires.
const PBKDF2Iterations = 100000

// Enrol runs spec.md §4.5.1: sample a secret polynomial, lock it behind
// template, run the OPRF exchange with ev, derive the bound RSA keypair
// and return the profile record ready for store.FileStore.Save.
func Enrol(g field.Group, ev *oprf.Evaluator, clientID int64, template []*big.Int, tau int) (store.Profile, error) {
	defer telemetry.Track(time.Now(), "enrol")
	log.Printf("[orchestrator] enrolling client_id=%d tau=%d", clientID, tau)

	f, err := vault.GenerateSecretPolynomial(g, tau)
	if err != nil {
		return store.Profile{}, fmt.Errorf("orchestrator: Enrol(%d): %w", clientID, err)
	}
	v, err := vault.Lock(g, template, f)
	if err != nil {
		return store.Profile{}, fmt.Errorf("orchestrator: Enrol(%d): %w", clientID, err)
	}

	seed, err := runOPRF(ev, f, g.Order())
	if err != nil {
		return store.Profile{}, fmt.Errorf("orchestrator: Enrol(%d): %w", clientID, err)
	}
	key, err := rsakeygen.FromSeed(seed)
	if err != nil {
		return store.Profile{}, fmt.Errorf("orchestrator: Enrol(%d): %w", clientID, err)
	}
	pkPEM, err := rsakeygen.ExportPublicPEM(&key.PublicKey)
	if err != nil {
		return store.Profile{}, fmt.Errorf("orchestrator: Enrol(%d): %w", clientID, err)
	}

	log.Printf("[orchestrator] enrolled client_id=%d", clientID)
	return store.Profile{
		ClientID:           clientID,
		VaultCoefs:         v.CoefInts(),
		ClientPublicKeyPEM: pkPEM,
		GroupOrder:         g.Order().Int64(),
		VerifyThreshold:    tau,
	}, nil
}

// Verify runs spec.md §4.5.2: reconstruct V from the stored profile
// coefficients, run the decoder against templatePrime, replay the OPRF
// exchange and rederive the candidate RSA keypair. Decoder exhaustion
// surfaces as ErrVerificationFailed (spec.md §7), never vault.ErrDecodeFailure
// directly, since that distinction is not meaningful to this caller.
func Verify(g field.Group, ev *oprf.Evaluator, profile store.Profile, templatePrime []*big.Int, rounds int) (*rsa.PrivateKey, error) {
	defer telemetry.Track(time.Now(), "verify")
	log.Printf("[orchestrator] verifying client_id=%d", profile.ClientID)

	coef := make([]*big.Int, len(profile.VaultCoefs))
	for i, c := range profile.VaultCoefs {
		coef[i] = big.NewInt(c)
	}
	v := field.NewPoly(g, coef)

	rng := vault.NewRNG(int64(profile.ClientID))
	fHat, err := vault.UnlockContext(context.Background(), g, v, templatePrime, profile.VerifyThreshold, rounds, rng)
	if err != nil {
		log.Printf("[orchestrator] verify client_id=%d decode failure: %v", profile.ClientID, err)
		return nil, fmt.Errorf("orchestrator: Verify(%d): %w", profile.ClientID, ErrVerificationFailed)
	}

	seed, err := runOPRF(ev, fHat, g.Order())
	if err != nil {
		return nil, fmt.Errorf("orchestrator: Verify(%d): %w", profile.ClientID, err)
	}
	key, err := rsakeygen.FromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: Verify(%d): %w", profile.ClientID, err)
	}

	log.Printf("[orchestrator] verify client_id=%d recovered candidate key", profile.ClientID)
	return key, nil
}

// runOPRF drives one full client/evaluator exchange (spec.md §4.3.3) over
// polynomial p, returning the client's unblinded seed as a hex string.
func runOPRF(ev *oprf.Evaluator, p field.Poly, q *big.Int) (string, error) {
	c, err := oprf.NewClient()
	if err != nil {
		return "", fmt.Errorf("runOPRF: %w", err)
	}
	h := oprf.HashPolynomial(p)
	b := c.Blind(h)
	e, err := ev.Evaluate(b)
	if err != nil {
		return "", fmt.Errorf("runOPRF: %w", err)
	}
	s, err := c.Unblind(e, q)
	if err != nil {
		return "", fmt.Errorf("runOPRF: %w", err)
	}
	return s, nil
}

// TransportSessionKey implements the server half of spec.md §4.5.3: derive
// a random 32-byte session key via PBKDF2-HMAC-SHA256 and encrypt it under
// pk with RSAES-OAEP. Returns the plaintext session key (for the server's
// own records / test comparison) and the ciphertext to send to the client.
func TransportSessionKey(pk *rsa.PublicKey) (sessionKey, ciphertext []byte, err error) {
	modulusBytes := (pk.N.BitLen() + 7) / 8
	ikm := make([]byte, modulusBytes/8)
	if _, err := rand.Read(ikm); err != nil {
		return nil, nil, fmt.Errorf("orchestrator: TransportSessionKey: %w", err)
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("orchestrator: TransportSessionKey: %w", err)
	}
	sessionKey = pbkdf2.Key(ikm, salt, PBKDF2Iterations, SessionKeyLen, sha256.New)

	ct, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pk, sessionKey, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: TransportSessionKey: %w", err)
	}
	return sessionKey, ct, nil
}

// RecoverSessionKey implements the client half of spec.md §4.5.3: decrypt
// ciphertext with the recovered candidate key sk. Any OAEP failure
// (wrong key or corrupted ciphertext, indistinguishable to the caller per
// spec.md §7) surfaces as ErrVerificationFailed.
func RecoverSessionKey(sk *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, sk, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: RecoverSessionKey: %w", ErrVerificationFailed)
	}
	return pt, nil
}

// parsePublicFromProfile recovers the server-held public key from a
// profile record's PEM field, for driving TransportSessionKey.
func parsePublicFromProfile(p store.Profile) (*rsa.PublicKey, error) {
	pub, err := rsakeygen.ParsePublicPEM(p.ClientPublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: parsePublicFromProfile(%d): %w", p.ClientID, err)
	}
	return pub, nil
}

// SessionKeysMatch is the success criterion of spec.md §4.5.3:
// SHA-256(session_key_client) == SHA-256(session_key_server).
func SessionKeysMatch(clientKey, serverKey []byte) bool {
	a := sha256.Sum256(clientKey)
	b := sha256.Sum256(serverKey)
	return a == b
}
