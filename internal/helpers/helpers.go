package helpers

import (
	"regexp"
	"strings"
)

// Stage constants define the possible deployment/runtime environments.
const (
	StageProd  = "prod"
	StageDev   = "dev"
	StageLocal = "local"
)

// IsValidStage checks if the provided stage string is one of the defined valid stages.
func IsValidStage(stage string) bool {
	switch stage {
	case StageProd, StageDev, StageLocal:
		return true
	default:
		return false
	}
}

// ParseBool reads the loose truthy values HikaShop and env files use
// ("1", "true", "yes", "on").
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on", "y":
		return true
	default:
		return false
	}
}

// SplitCSV splits a comma separated list, dropping empty entries.
func SplitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var emailParts = regexp.MustCompile(`^(.).+(@.+)$`)

// MaskEmail keeps the first character and the domain of an e-mail address,
// e.g. j***@example.com. Values that do not look like an address are
// returned unchanged.
func MaskEmail(email string) string {
	return emailParts.ReplaceAllString(email, "$1***$2")
}
