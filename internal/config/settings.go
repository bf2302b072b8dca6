package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pablop76/hikashop-fakturownia/internal/invoicing"
)

// Settings are the invoicing options checked before any remote call.
type Settings struct {
	APIToken      string
	Subdomain     string
	SellerName    string
	SellerTaxNo   string
	InvoiceMode   invoicing.Mode
	AutoSendEmail bool
	DebugOrder    bool
	// Location renders invoice dates. Nil means UTC.
	Location *time.Location
}

// MissingSettingsError lists the required settings that are empty.
type MissingSettingsError struct {
	Missing []string
}

func (e *MissingSettingsError) Error() string {
	return fmt.Sprintf("missing required settings: %s", strings.Join(e.Missing, ", "))
}

var settingLabels = map[string]string{
	"api_token":     "Brak API Token",
	"subdomain":     "Brak subdomeny",
	"seller_name":   "Brak nazwy firmy sprzedawcy",
	"seller_tax_no": "Brak NIP sprzedawcy",
}

// Labels returns the missing settings the way the shop back office names
// them, in validation order.
func (e *MissingSettingsError) Labels() []string {
	labels := make([]string, 0, len(e.Missing))
	for _, key := range e.Missing {
		if l, ok := settingLabels[key]; ok {
			labels = append(labels, l)
			continue
		}
		labels = append(labels, key)
	}
	return labels
}

// Validate checks that every setting needed to talk to Fakturownia is present.
func (s Settings) Validate() error {
	var missing []string
	if strings.TrimSpace(s.APIToken) == "" {
		missing = append(missing, "api_token")
	}
	if strings.TrimSpace(s.Subdomain) == "" {
		missing = append(missing, "subdomain")
	}
	if strings.TrimSpace(s.SellerName) == "" {
		missing = append(missing, "seller_name")
	}
	if strings.TrimSpace(s.SellerTaxNo) == "" {
		missing = append(missing, "seller_tax_no")
	}
	if len(missing) > 0 {
		return &MissingSettingsError{Missing: missing}
	}
	return nil
}

// Seller returns the invoice issuer.
func (s Settings) Seller() invoicing.Seller {
	return invoicing.Seller{Name: strings.TrimSpace(s.SellerName), TaxNo: strings.TrimSpace(s.SellerTaxNo)}
}

var (
	subdomainScheme = regexp.MustCompile(`(?i)^https?://`)
	subdomainHost   = regexp.MustCompile(`(?i)\.?(test\.)?fakturownia\.pl.*$`)
	subdomainTest   = regexp.MustCompile(`(?i)\.test$`)
)

// SanitizeSubdomain reduces a pasted account URL or host to the bare
// subdomain, e.g. "https://myshop.fakturownia.pl/" becomes "myshop".
func SanitizeSubdomain(raw string) string {
	s := strings.TrimSpace(raw)
	s = subdomainScheme.ReplaceAllString(s, "")
	s = subdomainHost.ReplaceAllString(s, "")
	s = subdomainTest.ReplaceAllString(s, "")
	return strings.Trim(s, "/")
}
