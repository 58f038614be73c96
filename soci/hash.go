package soci

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// HashAlgorithm identifies a Vault secret-hashing strategy.
type HashAlgorithm string

const (
	// AlgorithmArgon2id uses the Argon2id KDF.
	AlgorithmArgon2id HashAlgorithm = "argon2id"
	// AlgorithmBcrypt uses the bcrypt password hashing scheme.
	AlgorithmBcrypt HashAlgorithm = "bcrypt"
)

var (
	// ErrUnsupportedAlgorithm indicates an unsupported hashing algorithm selection.
	ErrUnsupportedAlgorithm = errors.New("soci: vault: unsupported hash algorithm")
	// ErrUnknownHashFormat indicates that no registered strategy recognizes a hash.
	ErrUnknownHashFormat = errors.New("soci: vault: unknown hash format")
	// ErrPasswordMismatch indicates that a secret does not match a stored hash.
	ErrPasswordMismatch = errors.New("soci: vault: secret mismatch")
	// ErrPasswordEmpty indicates that a secret is empty.
	ErrPasswordEmpty = errors.New("soci: vault: secret cannot be empty")
	// ErrPasswordTooLong indicates that a secret exceeds the maximum length bcrypt supports.
	ErrPasswordTooLong = errors.New("soci: vault: secret too long (max 72 bytes)")
)

// HashConfig drives the construction of a Vault's hashing strategy.
type HashConfig struct {
	// Default selects the algorithm Hash uses when none is specified.
	Default HashAlgorithm
	// Argon2 customizes the Argon2id strategy.
	Argon2 Argon2Config
	// Bcrypt customizes the bcrypt strategy.
	Bcrypt BcryptConfig
}

func (cfg *HashConfig) setDefaults() {
	cfg.Argon2.setDefaults()
	cfg.Bcrypt.setDefaults()
	if cfg.Default == "" {
		cfg.Default = AlgorithmArgon2id
	}
}

// Argon2Config customizes the Argon2id parameters.
type Argon2Config struct {
	Time        uint32
	Memory      uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  uint32
}

func (c *Argon2Config) setDefaults() {
	if c.Time == 0 {
		c.Time = 3
	}
	if c.Memory == 0 {
		c.Memory = 64 * 1024
	}
	if c.Parallelism == 0 {
		c.Parallelism = 2
	}
	if c.KeyLength == 0 {
		c.KeyLength = 32
	}
	if c.SaltLength == 0 {
		c.SaltLength = 16
	}
}

// BcryptConfig customizes the bcrypt strategy.
type BcryptConfig struct {
	Cost int
}

func (c *BcryptConfig) setDefaults() {
	if c.Cost == 0 {
		c.Cost = 12
	}
}

// hashStrategy is one pluggable algorithm a passwordHasher can hash or
// compare against, detected from a stored hash's own format on Compare.
type hashStrategy interface {
	hash(context.Context, string) (string, error)
	compare(context.Context, string, string) error
	canHandle(string) bool
}

// passwordHasher hashes and compares Vault secrets, a pluggable
// strategy-pattern wrapper around Argon2id (the default) and bcrypt (kept
// for verifying hashes produced before a Vault's deployment adopted
// Argon2id).
type passwordHasher struct {
	defaultAlg HashAlgorithm
	strategies map[HashAlgorithm]hashStrategy
}

// newPasswordHasher constructs a passwordHasher from cfg.
func newPasswordHasher(cfg HashConfig) (*passwordHasher, error) {
	cfg.setDefaults()

	strats := make(map[HashAlgorithm]hashStrategy, 2)

	argon2Strategy, err := newArgon2Strategy(cfg.Argon2)
	if err != nil {
		return nil, err
	}
	strats[AlgorithmArgon2id] = argon2Strategy

	bcryptStrategy, err := newBcryptStrategy(cfg.Bcrypt)
	if err != nil {
		return nil, err
	}
	strats[AlgorithmBcrypt] = bcryptStrategy

	if _, ok := strats[cfg.Default]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, cfg.Default)
	}

	return &passwordHasher{defaultAlg: cfg.Default, strategies: strats}, nil
}

// hash produces a secret hash using the default algorithm.
func (h *passwordHasher) hash(ctx context.Context, secret string) (string, error) {
	if err := validateSecret(secret); err != nil {
		return "", err
	}
	return h.hashWith(ctx, h.defaultAlg, secret)
}

// hashWith produces a secret hash using a specific algorithm.
func (h *passwordHasher) hashWith(ctx context.Context, alg HashAlgorithm, secret string) (string, error) {
	if err := validateSecret(secret); err != nil {
		return "", err
	}
	strat, ok := h.strategies[alg]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
	return strat.hash(ctx, secret)
}

// compare attempts to match secret against hashed, whose own format
// selects the strategy.
func (h *passwordHasher) compare(ctx context.Context, hashed, secret string) error {
	hashed = strings.TrimSpace(hashed)
	if hashed == "" {
		return ErrUnknownHashFormat
	}

	for _, strat := range h.orderedStrategies() {
		if strat.canHandle(hashed) {
			return strat.compare(ctx, hashed, secret)
		}
	}

	if strat, ok := h.strategies[h.defaultAlg]; ok {
		if err := strat.compare(ctx, hashed, secret); err == nil {
			return nil
		}
	}

	return ErrUnknownHashFormat
}

func (h *passwordHasher) orderedStrategies() []hashStrategy {
	algs := make([]HashAlgorithm, 0, len(h.strategies))
	for alg := range h.strategies {
		algs = append(algs, alg)
	}
	sort.Slice(algs, func(i, j int) bool { return algs[i] < algs[j] })

	strats := make([]hashStrategy, 0, len(algs))
	for _, alg := range algs {
		strats = append(strats, h.strategies[alg])
	}
	return strats
}

func validateSecret(secret string) error {
	if secret == "" {
		return ErrPasswordEmpty
	}
	if len(secret) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

type argon2Strategy struct {
	cfg Argon2Config
}

func newArgon2Strategy(cfg Argon2Config) (hashStrategy, error) {
	switch {
	case cfg.SaltLength < 8:
		return nil, errors.New("soci: vault: argon2 salt length must be >= 8 bytes")
	case cfg.KeyLength < 16:
		return nil, errors.New("soci: vault: argon2 key length must be >= 16 bytes")
	case cfg.Parallelism == 0:
		return nil, errors.New("soci: vault: argon2 parallelism must be > 0")
	case cfg.Memory < 1024:
		return nil, errors.New("soci: vault: argon2 memory must be >= 1024 kib")
	case cfg.Time == 0:
		return nil, errors.New("soci: vault: argon2 time cost must be > 0")
	}
	return &argon2Strategy{cfg: cfg}, nil
}

func (s *argon2Strategy) hash(_ context.Context, secret string) (string, error) {
	salt := make([]byte, s.cfg.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("soci: vault: generate salt: %w", err)
	}

	h := argon2.IDKey([]byte(secret), salt, s.cfg.Time, s.cfg.Memory, s.cfg.Parallelism, s.cfg.KeyLength)
	return encodeArgon2Hash(salt, h, s.cfg), nil
}

func (s *argon2Strategy) compare(_ context.Context, encoded, secret string) error {
	params, salt, hash, err := decodeArgon2Hash(encoded)
	if err != nil {
		return err
	}

	derived := argon2.IDKey([]byte(secret), salt, params.time, params.memory, params.parallelism, params.keyLen)
	if subtle.ConstantTimeCompare(hash, derived) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

func (s *argon2Strategy) canHandle(hashed string) bool {
	return strings.HasPrefix(hashed, "$argon2")
}

func encodeArgon2Hash(salt, hash []byte, cfg Argon2Config) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		cfg.Memory,
		cfg.Time,
		cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
}

type argon2Params struct {
	time        uint32
	memory      uint32
	parallelism uint8
	keyLen      uint32
}

func decodeArgon2Hash(encoded string) (argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return argon2Params{}, nil, nil, ErrUnknownHashFormat
	}
	if !strings.HasPrefix(parts[1], "argon2") {
		return argon2Params{}, nil, nil, ErrUnknownHashFormat
	}

	if _, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v=")); err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("soci: vault: invalid argon2 version: %w", err)
	}

	sub := strings.Split(parts[3], ",")
	if len(sub) != 3 {
		return argon2Params{}, nil, nil, ErrUnknownHashFormat
	}

	var params argon2Params
	for _, chunk := range sub {
		switch {
		case strings.HasPrefix(chunk, "m="):
			val, err := parseUint32(chunk, "m=")
			if err != nil {
				return argon2Params{}, nil, nil, err
			}
			params.memory = val
		case strings.HasPrefix(chunk, "t="):
			val, err := parseUint32(chunk, "t=")
			if err != nil {
				return argon2Params{}, nil, nil, err
			}
			params.time = val
		case strings.HasPrefix(chunk, "p="):
			val, err := parseUint32(chunk, "p=")
			if err != nil {
				return argon2Params{}, nil, nil, err
			}
			if val > uint32(^uint8(0)) {
				return argon2Params{}, nil, nil, fmt.Errorf("soci: vault: argon2 parallelism out of range")
			}
			params.parallelism = uint8(val)
		}
	}

	if params.memory == 0 || params.time == 0 || params.parallelism == 0 {
		return argon2Params{}, nil, nil, ErrUnknownHashFormat
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("soci: vault: decode argon2 salt: %w", err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argon2Params{}, nil, nil, fmt.Errorf("soci: vault: decode argon2 hash: %w", err)
	}
	params.keyLen = uint32(len(hash))
	return params, salt, hash, nil
}

func parseUint32(value, prefix string) (uint32, error) {
	parsed, err := strconv.ParseUint(strings.TrimPrefix(value, prefix), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("soci: vault: parse %s: %w", prefix, err)
	}
	return uint32(parsed), nil
}

type bcryptStrategy struct {
	cost int
}

func newBcryptStrategy(cfg BcryptConfig) (hashStrategy, error) {
	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("soci: vault: bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &bcryptStrategy{cost: cfg.Cost}, nil
}

func (s *bcryptStrategy) hash(ctx context.Context, secret string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", fmt.Errorf("soci: vault: bcrypt hash: %w", err)
	}
	return string(hashed), nil
}

func (s *bcryptStrategy) compare(ctx context.Context, hashed, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("soci: vault: bcrypt compare: %w", err)
	}
	return nil
}

func (s *bcryptStrategy) canHandle(hashed string) bool {
	return strings.HasPrefix(hashed, "$2a$") ||
		strings.HasPrefix(hashed, "$2b$") ||
		strings.HasPrefix(hashed, "$2y$")
}
