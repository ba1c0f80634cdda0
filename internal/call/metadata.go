package call

import (
	"encoding/json"
	"strings"
)

// phoneKeys is the ordered list of accepted phone-number field spellings.
// The first present, non-empty key wins.
var phoneKeys = []string{"phone_number", "phoneNumber", "phone", "number"}

// Metadata is the parsed dial job payload. Only the phone number is
// interpreted; the rest rides along for logging and reporting.
type Metadata struct {
	CallType  string
	Company   string
	AgentName string
	Purpose   string
	CreatedAt int64

	raw map[string]any
}

// ParseMetadata decodes a job metadata blob. Empty or invalid JSON is not
// fatal: it yields empty metadata, which fails phone normalization later
// and aborts the job without any network side effects.
func ParseMetadata(blob string) (Metadata, error) {
	md := Metadata{raw: map[string]any{}}
	if strings.TrimSpace(blob) == "" {
		return md, nil
	}
	if err := json.Unmarshal([]byte(blob), &md.raw); err != nil {
		return Metadata{raw: map[string]any{}}, err
	}
	md.CallType = md.str("callType")
	md.Company = md.str("company")
	md.AgentName = md.str("agentName")
	md.Purpose = md.str("purpose")
	if v, ok := md.raw["createdAt"].(float64); ok {
		md.CreatedAt = int64(v)
	}
	return md, nil
}

// PhoneNumber resolves the phone field by alias order. Returns "" when no
// accepted key carries a usable value.
func (m Metadata) PhoneNumber() string {
	for _, k := range phoneKeys {
		if v := m.str(k); v != "" {
			return v
		}
	}
	return ""
}

func (m Metadata) str(key string) string {
	v, ok := m.raw[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
