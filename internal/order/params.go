package order

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// HikaShop stores currency info as a PHP-serialized object, e.g.
// O:8:"stdClass":2:{s:13:"currency_code";s:3:"EUR";...}
var serializedCurrencyCode = regexp.MustCompile(`s:\d+:"currency_code";s:\d+:"([A-Za-z]{3})"`)

// serializedNumber matches a numeric member of a PHP-serialized object,
// stored as d:0.23; i:2; or s:4:"0.23";.
func serializedNumber(key string) *regexp.Regexp {
	return regexp.MustCompile(`s:\d+:"` + regexp.QuoteMeta(key) + `";(?:d:|i:|s:\d+:")(-?[0-9.]+)`)
}

var (
	serializedTaxRate      = serializedNumber("tax_rate")
	serializedFlatDiscount = serializedNumber("discount_flat_amount")
	serializedPctDiscount  = serializedNumber("discount_percent_amount")
)

// ParseCurrency extracts currency_code from the stored currency-info blob.
// JSON and PHP-serialized blobs are both accepted; anything else yields
// DefaultCurrency.
func ParseCurrency(blob string) string {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return DefaultCurrency
	}

	if strings.HasPrefix(blob, "{") {
		var info struct {
			CurrencyCode string `json:"currency_code"`
		}
		if err := json.Unmarshal([]byte(blob), &info); err == nil && info.CurrencyCode != "" {
			return strings.ToUpper(info.CurrencyCode)
		}
		return DefaultCurrency
	}

	if m := serializedCurrencyCode.FindStringSubmatch(blob); m != nil {
		return strings.ToUpper(m[1])
	}
	return DefaultCurrency
}

// ParseMetadata decodes order_params. An empty or malformed blob yields
// empty metadata instead of an error so that a broken blob never blocks
// invoicing.
func ParseMetadata(blob []byte) Metadata {
	md := Metadata{Raw: map[string]interface{}{}}
	if len(blob) == 0 {
		return md
	}

	if err := json.Unmarshal(blob, &md.Raw); err != nil || md.Raw == nil {
		md.Raw = map[string]interface{}{}
		return md
	}

	md.DocumentID = toInt64(md.Raw[MetaDocumentID])
	if v, ok := md.Raw[MetaProcessed].(string); ok {
		md.Processed = v
	}
	return md
}

// Encode serializes the metadata back, keeping unknown keys.
func (m Metadata) Encode() ([]byte, error) {
	raw := make(map[string]interface{}, len(m.Raw)+2)
	for k, v := range m.Raw {
		raw[k] = v
	}
	if m.DocumentID != 0 {
		raw[MetaDocumentID] = m.DocumentID
	}
	if m.Processed != "" {
		raw[MetaProcessed] = m.Processed
	}
	return json.Marshal(raw)
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case json.Number:
		n, _ := t.Int64()
		return n
	default:
		return 0
	}
}

// ParseFirstTaxRate returns the tax_rate of the first entry of a tax-info
// blob. Entries keep their document order. Nil means no rate was found.
func ParseFirstTaxRate(blob string) *float64 {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil
	}

	if !strings.HasPrefix(blob, "{") && !strings.HasPrefix(blob, "[") {
		if m := serializedTaxRate.FindStringSubmatch(blob); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				return &v
			}
		}
		return nil
	}

	first, ok := firstJSONEntry([]byte(blob))
	if !ok {
		return nil
	}
	var entry struct {
		TaxRate json.Number `json:"tax_rate"`
	}
	if err := json.Unmarshal(first, &entry); err != nil || entry.TaxRate == "" {
		return nil
	}
	v, err := entry.TaxRate.Float64()
	if err != nil {
		return nil
	}
	return &v
}

// firstJSONEntry returns the first element of an array or the first member
// value of an object. An object that itself carries tax_rate is returned as is.
func firstJSONEntry(blob []byte) (json.RawMessage, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(blob, &probe); err == nil {
		if _, ok := probe["tax_rate"]; ok {
			return blob, true
		}
	}

	dec := json.NewDecoder(bytes.NewReader(blob))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, false
	}
	if delim == '{' {
		// skip the key
		if _, err := dec.Token(); err != nil {
			return nil, false
		}
	}
	if !dec.More() {
		return nil, false
	}
	var first json.RawMessage
	if err := dec.Decode(&first); err != nil {
		return nil, false
	}
	return first, true
}

// ParseDiscountInfo decodes order_product_discount_info. Nil means the line
// carries no discount info at all.
func ParseDiscountInfo(blob string) *DiscountInfo {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil
	}

	if strings.HasPrefix(blob, "{") {
		var info struct {
			Flat    json.Number `json:"discount_flat_amount"`
			Percent json.Number `json:"discount_percent_amount"`
		}
		if err := json.Unmarshal([]byte(blob), &info); err != nil {
			return nil
		}
		flat, _ := info.Flat.Float64()
		percent, _ := info.Percent.Float64()
		return &DiscountInfo{FlatAmount: flat, PercentAmount: percent}
	}

	var info DiscountInfo
	found := false
	if m := serializedFlatDiscount.FindStringSubmatch(blob); m != nil {
		info.FlatAmount, _ = strconv.ParseFloat(m[1], 64)
		found = true
	}
	if m := serializedPctDiscount.FindStringSubmatch(blob); m != nil {
		info.PercentAmount, _ = strconv.ParseFloat(m[1], 64)
		found = true
	}
	if !found {
		return nil
	}
	return &info
}
