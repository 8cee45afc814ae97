package banking

import (
	"strings"

	"golang.org/x/text/currency"
)

// BankInfo describes a known bank.
type BankInfo struct {
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Currency    string `json:"currency"`
	Code        string `json:"code"`
}

// bankRegistry maps lowercase name fragments to bank metadata. Lookup
// is substring based, so both full names and abbreviations match.
var bankRegistry = map[string]BankInfo{
	"abu dhabi commercial bank": {DisplayName: "Abu Dhabi Commercial Bank", Country: "UAE", Currency: "AED", Code: "ADCB"},
	"adcb":                      {DisplayName: "Abu Dhabi Commercial Bank", Country: "UAE", Currency: "AED", Code: "ADCB"},
	"first abu dhabi bank":      {DisplayName: "First Abu Dhabi Bank", Country: "UAE", Currency: "AED", Code: "FAB"},
	"fab":                       {DisplayName: "First Abu Dhabi Bank", Country: "UAE", Currency: "AED", Code: "FAB"},
	"emirates nbd":              {DisplayName: "Emirates NBD", Country: "UAE", Currency: "AED", Code: "ENBD"},
	"enbd":                      {DisplayName: "Emirates NBD", Country: "UAE", Currency: "AED", Code: "ENBD"},
	"mashreq":                   {DisplayName: "Mashreq Bank", Country: "UAE", Currency: "AED", Code: "MASHREQ"},
	"commercial bank of dubai":  {DisplayName: "Commercial Bank of Dubai", Country: "UAE", Currency: "AED", Code: "CBD"},
	"hsbc uae":                  {DisplayName: "HSBC Bank Middle East", Country: "UAE", Currency: "AED", Code: "HSBC"},
	"hsbc middle east":          {DisplayName: "HSBC Bank Middle East", Country: "UAE", Currency: "AED", Code: "HSBC"},
	"abu dhabi islamic bank":    {DisplayName: "Abu Dhabi Islamic Bank", Country: "UAE", Currency: "AED", Code: "ADIB"},
	"adib":                      {DisplayName: "Abu Dhabi Islamic Bank", Country: "UAE", Currency: "AED", Code: "ADIB"},
	"rakbank":                   {DisplayName: "RAKBank", Country: "UAE", Currency: "AED", Code: "RAKBANK"},

	"bank of america": {DisplayName: "Bank of America", Country: "USA", Currency: "USD", Code: "BOA"},
	"chase bank":      {DisplayName: "Chase Bank", Country: "USA", Currency: "USD", Code: "CHASE"},
	"wells fargo":     {DisplayName: "Wells Fargo", Country: "USA", Currency: "USD", Code: "WF"},
	"citibank":        {DisplayName: "Citibank", Country: "USA", Currency: "USD", Code: "CITI"},

	"barclays": {DisplayName: "Barclays", Country: "UK", Currency: "GBP", Code: "BARCLAYS"},
	"lloyds":   {DisplayName: "Lloyds", Country: "UK", Currency: "GBP", Code: "LLOYDS"},
	"hsbc uk":  {DisplayName: "HSBC UK", Country: "UK", Currency: "GBP", Code: "HSBC"},

	"state bank of india": {DisplayName: "State Bank of India", Country: "India", Currency: "INR", Code: "SBI"},
	"hdfc bank":           {DisplayName: "HDFC Bank", Country: "India", Currency: "INR", Code: "HDFC"},
	"icici bank":          {DisplayName: "ICICI Bank", Country: "India", Currency: "INR", Code: "ICICI"},

	"deutsche bank": {DisplayName: "Deutsche Bank", Country: "Germany", Currency: "EUR", Code: "DB"},
	"bnp paribas":   {DisplayName: "BNP Paribas", Country: "France", Currency: "EUR", Code: "BNP"},
	"ing bank":      {DisplayName: "ING Bank", Country: "Netherlands", Currency: "EUR", Code: "ING"},
}

// UnknownBank is the fallback when no registry entry matches. Unknown
// banks default to USD.
var UnknownBank = BankInfo{DisplayName: "Unknown Bank", Country: "Unknown", Currency: "USD", Code: "UNKNOWN"}

// DetectBank scans free text (sheet content, file name) for a known
// bank and returns its metadata. Longer fragments win so "hsbc uae"
// beats a bare "fab" buried inside another word.
func DetectBank(text string) BankInfo {
	lower := strings.ToLower(text)
	best := UnknownBank
	bestLen := 0
	for fragment, info := range bankRegistry {
		if strings.Contains(lower, fragment) && len(fragment) > bestLen {
			best = info
			bestLen = len(fragment)
		}
	}
	return best
}

// ValidCurrency reports whether code is a well-formed ISO 4217 unit.
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(code)
	return err == nil
}

// DayFirstDates reports whether statements in the given currency use
// day-first date formats. US statements are month first, everything
// else in the registry is day first.
func DayFirstDates(currencyCode string) bool {
	return currencyCode != "USD"
}
