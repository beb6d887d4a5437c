package settings

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nulzo/concierge-bot/internal/core/domain"
	"github.com/nulzo/concierge-bot/internal/sponsor"
)

// Value is the typed result of validating one raw admin input. Only the
// field matching the setting's Kind is meaningful; Cleared marks an
// optional setting reset by a clear sentinel.
type Value struct {
	Kind    Kind
	Cleared bool
	Str     string
	Int     int
	Float   float64
	Bool    bool
	List    []string
}

// Encode renders a Value back to its canonical persisted string form.
func (v Value) Encode() string {
	if v.Cleared {
		return ""
	}
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.Int)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindChannelList, KindModelList:
		return strings.Join(v.List, ",")
	default:
		return v.Str
	}
}

// Sentinels that clear an optional setting. Compared case-insensitively
// against the trimmed input.
var clearSentinels = map[string]bool{
	"":      true,
	"none":  true,
	"null":  true,
	"unset": true,
	"-":     true,
}

// ASCII-only numeric patterns. Non-ASCII digits are rejected even when
// strconv would parse them.
var (
	intPattern   = regexp.MustCompile(`^[0-9]+$`)
	floatPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// Validate checks rawInput against spec and returns the typed value.
// Pure: committing the result is the caller's responsibility.
func Validate(spec *Setting, rawInput string) (Value, error) {
	raw := strings.TrimSpace(rawInput)

	if clearSentinels[strings.ToLower(raw)] {
		if spec.Optional {
			return Value{Kind: spec.Kind, Cleared: true}, nil
		}
		return Value{}, domain.Validation("%s is required", spec.Key)
	}

	switch spec.Kind {
	case KindString:
		return validateString(spec, raw)
	case KindInt:
		return validateInt(spec, raw)
	case KindFloat:
		return validateFloat(spec, raw)
	case KindBool:
		return validateBool(spec, rawInput)
	case KindEnum:
		return validateEnum(spec, raw)
	case KindChannelList:
		return validateChannelList(raw)
	case KindModelList:
		return validateModelList(spec, raw)
	}
	return Value{}, domain.Validation("%s: unsupported setting kind", spec.Key)
}

func validateString(spec *Setting, raw string) (Value, error) {
	if spec.MinLen > 0 && len(raw) < spec.MinLen {
		return Value{}, domain.Validation("%s must be at least %d characters", spec.Key, spec.MinLen)
	}
	if spec.MaxLen > 0 && len(raw) > spec.MaxLen {
		return Value{}, domain.Validation("%s must be at most %d characters", spec.Key, spec.MaxLen)
	}
	if spec.Pattern != nil && !spec.Pattern.MatchString(raw) {
		return Value{}, domain.Validation("%s has an invalid format", spec.Key)
	}
	return Value{Kind: KindString, Str: raw}, nil
}

func validateInt(spec *Setting, raw string) (Value, error) {
	if !intPattern.MatchString(raw) {
		return Value{}, domain.Validation("%s must be a whole number", spec.Key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Value{}, domain.Validation("%s must be a whole number", spec.Key)
	}
	if err := checkBounds(spec, float64(n)); err != nil {
		return Value{}, err
	}
	return Value{Kind: KindInt, Int: n}, nil
}

func validateFloat(spec *Setting, raw string) (Value, error) {
	if !floatPattern.MatchString(raw) {
		return Value{}, domain.Validation("%s must be a number", spec.Key)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Value{}, domain.Validation("%s must be a number", spec.Key)
	}
	if err := checkBounds(spec, f); err != nil {
		return Value{}, err
	}
	return Value{Kind: KindFloat, Float: f}, nil
}

func checkBounds(spec *Setting, v float64) error {
	if spec.Min != nil && v < *spec.Min {
		return domain.Validation("%s must be >= %s", spec.Key, formatFloat(*spec.Min))
	}
	if spec.Max != nil && v > *spec.Max {
		return domain.Validation("%s must be <= %s", spec.Key, formatFloat(*spec.Max))
	}
	return nil
}

// validateBool accepts exactly "true" and "false". Deliberately
// stricter than the tolerant boolean parsing used for env-sourced
// values in internal/config; the two paths must stay distinct.
func validateBool(spec *Setting, raw string) (Value, error) {
	switch raw {
	case "true":
		return Value{Kind: KindBool, Bool: true}, nil
	case "false":
		return Value{Kind: KindBool, Bool: false}, nil
	}
	return Value{}, domain.Validation("%s must be exactly \"true\" or \"false\"", spec.Key)
}

// validateEnum matches case-insensitively, returning the first declared
// variant hit by the exact, lowercased, then uppercased input.
func validateEnum(spec *Setting, raw string) (Value, error) {
	for _, candidate := range []string{raw, strings.ToLower(raw), strings.ToUpper(raw)} {
		for _, allowed := range spec.Allowed {
			if candidate == allowed {
				return Value{Kind: KindEnum, Str: allowed}, nil
			}
		}
	}
	return Value{}, domain.Validation("%s must be one of: %s", spec.Key, strings.Join(spec.Allowed, ", "))
}

func validateChannelList(raw string) (Value, error) {
	channels, err := sponsor.ParseCSV(raw)
	if err != nil {
		return Value{}, err
	}
	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
	}
	return Value{Kind: KindChannelList, List: ids}, nil
}

func validateModelList(spec *Setting, raw string) (Value, error) {
	parts := strings.Split(raw, ",")
	models := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		item := strings.TrimSpace(p)
		if item == "" {
			continue
		}
		if !modelPattern.MatchString(item) {
			return Value{}, domain.Validation("%s contains an invalid model id: %s", spec.Key, item)
		}
		if seen[item] {
			continue
		}
		seen[item] = true
		models = append(models, item)
	}
	return Value{Kind: KindModelList, List: models}, nil
}
