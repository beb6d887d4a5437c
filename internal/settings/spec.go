package settings

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind is the value type of a mutable setting.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindEnum
	KindChannelList
	KindModelList
)

// Setting keys. The set of settings is fixed at compile time; only
// values vary at runtime.
const (
	KeyDefaultProvider    = "default_provider"
	KeyDefaultModel       = "default_model"
	KeyFallbackProvider   = "fallback_provider"
	KeyFallbackModel      = "fallback_model"
	KeyAPIKey             = "api_key"
	KeyBaseURL            = "base_url"
	KeyRequestTimeout     = "request_timeout"
	KeyMaxRetries         = "max_retries"
	KeyRetryBackoff       = "retry_backoff"
	KeyTemperature        = "temperature"
	KeyMaxTokens          = "max_tokens"
	KeyTopP               = "top_p"
	KeyMaxHistoryMessages = "max_history_messages"
	KeyAllowedModels      = "allowed_models"
	KeySponsorChannels    = "sponsor_channels"
	KeySponsorFailClosed  = "sponsor_fail_closed"
	KeyAnonymizeUserIDs   = "anonymize_user_ids"
)

// Setting is the declarative rule set for one mutable configuration
// key. Constraints are interpreted per Kind by Validate.
type Setting struct {
	Key      string
	Kind     Kind
	Optional bool
	Secret   bool

	MinLen  int
	MaxLen  int
	Pattern *regexp.Regexp

	Min *float64 // inclusive, applies to int and float kinds
	Max *float64

	Allowed []string // enum kinds

	assign  func(s *Snapshot, v Value)
	display func(s *Snapshot) string
}

// Snapshot is one immutable configuration state. Every required field
// always holds a value satisfying its Setting's constraints; a new
// snapshot is produced only by applying one validated mutation to a
// prior valid one. Optional numerics are pointers so "unset" is
// distinguishable from zero.
type Snapshot struct {
	DefaultProvider    string
	DefaultModel       string
	FallbackProvider   string
	FallbackModel      string
	APIKey             string
	BaseURL            string
	RequestTimeout     float64
	MaxRetries         int
	RetryBackoff       float64
	Temperature        *float64
	MaxTokens          *int
	TopP               *float64
	MaxHistoryMessages int
	AllowedModels      []string
	SponsorChannels    []string
	SponsorFailClosed  bool
	AnonymizeUserIDs   bool
}

// DefaultSnapshot returns the built-in defaults applied before any
// environment or persisted overrides.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		DefaultProvider:    "openai",
		DefaultModel:       "gpt-4o",
		BaseURL:            "https://api.openai.com",
		RequestTimeout:     30,
		MaxRetries:         1,
		RetryBackoff:       0.5,
		MaxHistoryMessages: 12,
		AnonymizeUserIDs:   true,
	}
}

var (
	modelPattern    = regexp.MustCompile(`^[A-Za-z0-9._:/-]+$`)
	providerPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)
	urlPattern      = regexp.MustCompile(`^https?://\S+$`)
)

func bound(v float64) *float64 { return &v }

var registry = []Setting{
	{
		Key: KeyDefaultProvider, Kind: KindString,
		MinLen: 1, MaxLen: 64, Pattern: providerPattern,
		assign:  func(s *Snapshot, v Value) { s.DefaultProvider = v.Str },
		display: func(s *Snapshot) string { return s.DefaultProvider },
	},
	{
		Key: KeyDefaultModel, Kind: KindString,
		MinLen: 1, MaxLen: 128, Pattern: modelPattern,
		assign:  func(s *Snapshot, v Value) { s.DefaultModel = v.Str },
		display: func(s *Snapshot) string { return s.DefaultModel },
	},
	{
		Key: KeyFallbackProvider, Kind: KindString, Optional: true,
		MaxLen: 64, Pattern: providerPattern,
		assign:  func(s *Snapshot, v Value) { s.FallbackProvider = v.Str },
		display: func(s *Snapshot) string { return s.FallbackProvider },
	},
	{
		Key: KeyFallbackModel, Kind: KindString, Optional: true,
		MaxLen: 128, Pattern: modelPattern,
		assign:  func(s *Snapshot, v Value) { s.FallbackModel = v.Str },
		display: func(s *Snapshot) string { return s.FallbackModel },
	},
	{
		Key: KeyAPIKey, Kind: KindString, Optional: true, Secret: true,
		MaxLen: 256,
		assign:  func(s *Snapshot, v Value) { s.APIKey = v.Str },
		display: func(s *Snapshot) string { return s.APIKey },
	},
	{
		Key: KeyBaseURL, Kind: KindString,
		MinLen: 1, MaxLen: 256, Pattern: urlPattern,
		assign:  func(s *Snapshot, v Value) { s.BaseURL = strings.TrimRight(v.Str, "/") },
		display: func(s *Snapshot) string { return s.BaseURL },
	},
	{
		Key: KeyRequestTimeout, Kind: KindFloat,
		Min: bound(1), Max: bound(300),
		assign:  func(s *Snapshot, v Value) { s.RequestTimeout = v.Float },
		display: func(s *Snapshot) string { return formatFloat(s.RequestTimeout) },
	},
	{
		Key: KeyMaxRetries, Kind: KindInt,
		Min: bound(0), Max: bound(10),
		assign:  func(s *Snapshot, v Value) { s.MaxRetries = v.Int },
		display: func(s *Snapshot) string { return strconv.Itoa(s.MaxRetries) },
	},
	{
		Key: KeyRetryBackoff, Kind: KindFloat,
		Min: bound(0), Max: bound(60),
		assign:  func(s *Snapshot, v Value) { s.RetryBackoff = v.Float },
		display: func(s *Snapshot) string { return formatFloat(s.RetryBackoff) },
	},
	{
		Key: KeyTemperature, Kind: KindFloat, Optional: true,
		Min: bound(0), Max: bound(2),
		assign: func(s *Snapshot, v Value) {
			if v.Cleared {
				s.Temperature = nil
				return
			}
			f := v.Float
			s.Temperature = &f
		},
		display: func(s *Snapshot) string { return formatOptFloat(s.Temperature) },
	},
	{
		Key: KeyMaxTokens, Kind: KindInt, Optional: true,
		Min: bound(1), Max: bound(128000),
		assign: func(s *Snapshot, v Value) {
			if v.Cleared {
				s.MaxTokens = nil
				return
			}
			n := v.Int
			s.MaxTokens = &n
		},
		display: func(s *Snapshot) string {
			if s.MaxTokens == nil {
				return ""
			}
			return strconv.Itoa(*s.MaxTokens)
		},
	},
	{
		Key: KeyTopP, Kind: KindFloat, Optional: true,
		Min: bound(0), Max: bound(1),
		assign: func(s *Snapshot, v Value) {
			if v.Cleared {
				s.TopP = nil
				return
			}
			f := v.Float
			s.TopP = &f
		},
		display: func(s *Snapshot) string { return formatOptFloat(s.TopP) },
	},
	{
		Key: KeyMaxHistoryMessages, Kind: KindInt,
		Min: bound(0), Max: bound(200),
		assign:  func(s *Snapshot, v Value) { s.MaxHistoryMessages = v.Int },
		display: func(s *Snapshot) string { return strconv.Itoa(s.MaxHistoryMessages) },
	},
	{
		Key: KeyAllowedModels, Kind: KindModelList, Optional: true,
		assign:  func(s *Snapshot, v Value) { s.AllowedModels = v.List },
		display: func(s *Snapshot) string { return strings.Join(s.AllowedModels, ",") },
	},
	{
		Key: KeySponsorChannels, Kind: KindChannelList, Optional: true,
		assign:  func(s *Snapshot, v Value) { s.SponsorChannels = v.List },
		display: func(s *Snapshot) string { return strings.Join(s.SponsorChannels, ",") },
	},
	{
		Key: KeySponsorFailClosed, Kind: KindBool,
		assign:  func(s *Snapshot, v Value) { s.SponsorFailClosed = v.Bool },
		display: func(s *Snapshot) string { return strconv.FormatBool(s.SponsorFailClosed) },
	},
	{
		Key: KeyAnonymizeUserIDs, Kind: KindBool,
		assign:  func(s *Snapshot, v Value) { s.AnonymizeUserIDs = v.Bool },
		display: func(s *Snapshot) string { return strconv.FormatBool(s.AnonymizeUserIDs) },
	},
}

var registryIndex = buildIndex()

func buildIndex() map[string]*Setting {
	idx := make(map[string]*Setting, len(registry))
	for i := range registry {
		idx[registry[i].Key] = &registry[i]
	}
	return idx
}

// Registry returns the fixed, ordered set of setting declarations.
func Registry() []Setting {
	out := make([]Setting, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a setting declaration by key.
func Lookup(key string) (*Setting, bool) {
	s, ok := registryIndex[key]
	return s, ok
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatOptFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
