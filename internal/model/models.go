package model

import (
	"fmt"
	"time"
)

// Algorithm names one of the three perceptual hash algorithms.
type Algorithm string

const (
	AHash Algorithm = "aHash" // average hash
	DHash Algorithm = "dHash" // difference hash
	PHash Algorithm = "pHash" // DCT-based perceptual hash
)

// Algorithms returns every supported algorithm in a fixed order.
func Algorithms() []Algorithm {
	return []Algorithm{AHash, DHash, PHash}
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case AHash, DHash, PHash:
		return true
	}
	return false
}

// ParseAlgorithm accepts the canonical names ("pHash") as well as lowercase forms ("phash").
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "aHash", "ahash", "a":
		return AHash, nil
	case "dHash", "dhash", "d":
		return DHash, nil
	case "pHash", "phash", "p":
		return PHash, nil
	}
	return "", fmt.Errorf("unknown hash algorithm: %q", s)
}

// HashSize is the only signature size produced by the engine.
const HashSize = "64-bit"

// HashResult is a single rendered perceptual hash.
// Hash is always 16 uppercase hex digits (64 bits, zero-padded).
type HashResult struct {
	Hash      string    `json:"hash"`
	Algorithm Algorithm `json:"algorithm"`
	Size      string    `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// Fingerprint carries exactly one HashResult per algorithm.
// Build it with NewFingerprint so a record missing an algorithm cannot exist.
type Fingerprint struct {
	AHash HashResult `json:"aHash"`
	DHash HashResult `json:"dHash"`
	PHash HashResult `json:"pHash"`
}

// NewFingerprint assembles a Fingerprint from one result per algorithm.
func NewFingerprint(results ...HashResult) (Fingerprint, error) {
	var fp Fingerprint
	seen := make(map[Algorithm]bool, 3)
	for _, r := range results {
		if seen[r.Algorithm] {
			return Fingerprint{}, fmt.Errorf("duplicate %s hash", r.Algorithm)
		}
		seen[r.Algorithm] = true
		switch r.Algorithm {
		case AHash:
			fp.AHash = r
		case DHash:
			fp.DHash = r
		case PHash:
			fp.PHash = r
		default:
			return Fingerprint{}, fmt.Errorf("unknown hash algorithm: %q", r.Algorithm)
		}
	}
	if err := fp.Validate(); err != nil {
		return Fingerprint{}, err
	}
	return fp, nil
}

// Get returns the result for algo. The zero HashResult is returned for unknown algorithms.
func (f Fingerprint) Get(algo Algorithm) HashResult {
	switch algo {
	case AHash:
		return f.AHash
	case DHash:
		return f.DHash
	case PHash:
		return f.PHash
	}
	return HashResult{}
}

// Validate checks that every slot holds a well-formed hash of its own algorithm.
func (f Fingerprint) Validate() error {
	for _, algo := range Algorithms() {
		r := f.Get(algo)
		if r.Algorithm != algo {
			return fmt.Errorf("missing %s hash", algo)
		}
		if !isHex64(r.Hash) {
			return fmt.Errorf("malformed %s hash %q", algo, r.Hash)
		}
	}
	return nil
}

func isHex64(s string) bool {
	if len(s) != 16 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'F', c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}

// ProtectedAsset is a registered image whose re-uploads are being monitored.
type ProtectedAsset struct {
	ID                string      `json:"id"`
	Filename          string      `json:"filename"`
	Thumbnail         string      `json:"thumbnail"` // vault key of the encrypted thumbnail, empty if none
	Hashes            Fingerprint `json:"hashes"`
	UploadedAt        time.Time   `json:"uploadedAt"`
	LastScanned       *time.Time  `json:"lastScanned,omitempty"`
	MatchCount        int         `json:"matchCount"`
	MonitoringEnabled bool        `json:"monitoringEnabled"`
}

// RiskLevel classifies how likely a target is to host re-uploads.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether r is one of the known risk levels.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// MonitoringTarget is an external site the scanner checks for re-uploads.
type MonitoringTarget struct {
	ID        string
	Name      string
	Category  string
	RiskLevel RiskLevel
	URL       string // page the crawler fetches, may be empty for crawlers that do not need it
	Enabled   bool
	CreatedAt time.Time
}

// SessionStatus is the lifecycle state of a MonitoringSession.
type SessionStatus string

const (
	SessionIdle      SessionStatus = "idle"
	SessionScanning  SessionStatus = "scanning"
	SessionCompleted SessionStatus = "completed"
	SessionError     SessionStatus = "error"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionError || s == SessionCancelled
}

// MonitoringSession tracks a single scan pass over assets × targets.
type MonitoringSession struct {
	ID             string        `json:"id"`
	Status         SessionStatus `json:"status"`
	StartedAt      time.Time     `json:"startedAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
	TargetsScanned int           `json:"targetsScanned"`
	TotalTargets   int           `json:"totalTargets"`
	MatchesFound   int           `json:"matchesFound"`
	PairsFailed    int           `json:"pairsFailed"`
	CurrentTarget  string        `json:"currentTarget,omitempty"`
	Progress       int           `json:"progress"`
	Error          string        `json:"error,omitempty"`
}

// AlertType classifies a ContentAlert.
type AlertType string

const (
	AlertMatchFound     AlertType = "match_found"
	AlertPotentialMatch AlertType = "potential_match"
	AlertScanComplete   AlertType = "scan_complete"
)

// Severity ranks a ContentAlert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ContentAlert is a detection or status event shown to the user.
type ContentAlert struct {
	ID          string    `json:"id"`
	Type        AlertType `json:"type"`
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"timestamp"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TargetSite  string    `json:"targetSite,omitempty"`
	MatchURL    string    `json:"matchUrl,omitempty"`
	Similarity  *int      `json:"similarity,omitempty"` // 0..100
	Read        bool      `json:"read"`
	AssetID     string    `json:"assetId,omitempty"`
}

// CrawlResult is what a crawler reports for one (target, asset) pair.
type CrawlResult struct {
	Found      bool
	Similarity int // 0..100
	URL        string
}

// VaultMatch is one hit from a fingerprint vault search.
type VaultMatch struct {
	AssetID    string    `json:"assetId"`
	Similarity int       `json:"similarity"`
	Distance   int       `json:"distance"`
	StoredAt   time.Time `json:"storedAt"`
}
