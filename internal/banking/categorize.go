package banking

import (
	"regexp"
	"strings"
	"unicode"
)

// Transaction categories, ordered by matching priority.
const (
	CategoryInternalTransfer = "Internal Transfer"
	CategorySalaryIncome     = "Salary & Income"
	CategoryFinanceBanking   = "Finance & Banking"
	CategoryTechnology       = "Technology"
	CategoryFoodBeverage     = "Food & Beverage"
	CategoryTransportation   = "Transportation & Logistics"
	CategoryHealthcare       = "Healthcare"
	CategoryUtilities        = "Utilities"
	CategoryEntertainment    = "Entertainment & Media"
	CategoryRetailShopping   = "Retail & Shopping"
	CategoryOther            = "Other"
)

var categoryPriority = []string{
	CategoryInternalTransfer,
	CategorySalaryIncome,
	CategoryFinanceBanking,
	CategoryTechnology,
	CategoryFoodBeverage,
	CategoryTransportation,
	CategoryHealthcare,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryRetailShopping,
}

var categoryKeywords = map[string][]string{
	CategoryInternalTransfer: {
		"mobn transfer", "mobn", "internal transfer", "own account transfer",
		"self transfer", "ibft", "neft", "rtgs", "imps", "upi transfer",
		"between accounts", "acc transfer", "account transfer",
		"transfer from", "transfer to", "online transfer", "mobile transfer",
		"internet banking transfer", "e-transfer", "wire to self",
	},
	CategorySalaryIncome: {
		"salary", "payroll", "wages", "income", "direct deposit", "paycheck",
		"pay slip", "bonus", "commission", "stipend", "allowance",
		"reimbursement", "refund", "credit from", "deposit from", "payment from",
		"received from", "dividend", "interest credit", "profit share",
	},
	CategoryFinanceBanking: {
		"atm", "cash withdrawal", "withdrawal", "cash advance", "atm fee",
		"bank fee", "service charge", "maintenance fee", "overdraft", "annual fee",
		"interest charge", "finance charge", "late payment fee",
		"wire transfer", "remittance", "foreign exchange", "forex", "currency exchange",
		"uae exchange", "al ansari exchange", "lulu exchange",
		"zelle", "venmo", "paypal", "western union", "moneygram",
		"loan repayment", "emi payment", "credit card payment", "insurance premium",
		"tabby", "spotii", "tamara",
	},
	CategoryTechnology: {
		"netflix", "spotify", "youtube premium", "amazon prime", "disney+",
		"adobe", "microsoft", "google", "icloud", "dropbox", "zoom",
		"subscription", "monthly", "annual", "recurring", "saas",
		"software", "app store", "play store", "itunes", "office 365",
		"slack", "github", "figma", "notion", "canva",
	},
	CategoryFoodBeverage: {
		"carrefour", "lulu", "spinneys", "choithrams", "union coop", "waitrose",
		"restaurant", "cafe", "kfc", "mcdonald", "pizza", "subway", "dominos",
		"starbucks", "costa", "dunkin", "burger", "food", "dining",
		"grocery", "supermarket", "hypermarket", "bakery",
		"zomato", "talabat", "deliveroo", "uber eats", "noon food",
		"mrsool", "marsool", "shawarma", "falafel", "karak",
		"coffee", "espresso", "donuts", "blue bottle",
	},
	CategoryTransportation: {
		"adnoc", "eppco", "enoc", "petrol", "fuel", "gasoline",
		"taxi", "uber", "careem", "metro", "rta", "parking",
		"salik", "toll", "car wash", "transport", "emirates", "etihad",
		"flydubai", "air arabia", "airline", "flight", "airport",
		"shell", "lyft", "bolt", "indrive", "yango",
		"aramex", "dhl", "fedex", "ups", "courier", "shipping", "freight",
	},
	CategoryHealthcare: {
		"hospital", "clinic", "pharmacy", "medical", "doctor", "health",
		"dental", "aster", "nmc", "mediclinic", "life pharmacy",
		"seha", "dha", "thumbay", "daman",
		"salon", "spa", "gym", "fitness",
	},
	CategoryUtilities: {
		"dewa", "addc", "sewa", "fewa", "etisalat", "du telecom", "internet",
		"mobile", "telecom", "electricity", "water", "utility", "bill",
		"wifi", "broadband", "phone bill", "electric bill",
	},
	CategoryEntertainment: {
		"cinema", "movie", "vox", "reel", "osn", "gaming",
		"entertainment", "park", "beach", "attraction", "ticket", "event",
		"youtube", "disney", "hulu", "shahid", "museum", "amusement",
	},
	CategoryRetailShopping: {
		"mall", "centrepoint", "home centre", "ikea", "ace",
		"sharaf dg", "electronics", "clothing", "fashion",
		"shop", "store", "retail", "amazon", "noon", "souq", "namshi",
		"h&m", "zara", "nike", "adidas", "apple store", "samsung",
		"target", "walmart", "costco", "best buy", "shein",
	},
}

// financeTerms and techTerms gate their categories: a generic keyword
// hit alone is not enough, the transaction must also carry one of
// these stronger signals.
var financeTerms = []string{
	"atm", "withdrawal", "cash", "fee", "charge", "interest", "maintenance",
	"remittance", "exchange", "zelle", "venmo", "paypal", "western union",
	"forex", "overdraft", "tabby", "spotii", "tamara",
}

var techTerms = []string{
	"subscription", "monthly", "netflix", "spotify", "prime", "office",
	"adobe", "google", "microsoft", "icloud",
}

var merchantCategories = map[string]string{
	"careem":     CategoryTransportation,
	"talabat":    CategoryFoodBeverage,
	"zomato":     CategoryFoodBeverage,
	"mrsool":     CategoryFoodBeverage,
	"marsool":    CategoryFoodBeverage,
	"netflix":    CategoryTechnology,
	"spotify":    CategoryTechnology,
	"amazon":     CategoryRetailShopping,
	"noon":       CategoryRetailShopping,
	"namshi":     CategoryRetailShopping,
	"adnoc":      CategoryTransportation,
	"enoc":       CategoryTransportation,
	"eppco":      CategoryTransportation,
	"salik":      CategoryTransportation,
	"rta":        CategoryTransportation,
	"dewa":       CategoryUtilities,
	"etisalat":   CategoryUtilities,
	"du telecom": CategoryUtilities,
	"addc":       CategoryUtilities,
	"sewa":       CategoryUtilities,
	"tabby":      CategoryFinanceBanking,
	"spotii":     CategoryFinanceBanking,
	"tamara":     CategoryFinanceBanking,
}

var (
	sqPrefixRe    = regexp.MustCompile(`(?i)^sq\s*\*\s*(.+)`)
	refSuffixRe   = regexp.MustCompile(`\s*[-–]\s*\w{0,5}\s*$`)
	bankRefRe     = regexp.MustCompile(`^[0-9A-Z]{8,}$`)
	digitRe       = regexp.MustCompile(`[0-9]`)
	storeNumberRe = regexp.MustCompile(`\s+#\d+.*$`)
	longDigitsRe  = regexp.MustCompile(`\s+\d{8,}`)
	longHexRe     = regexp.MustCompile(`\b[0-9A-Fa-f]{10,}\b`)
	recurringRe   = regexp.MustCompile(`(?i)\s+RECURRING(\s+CHARGE)?$`)
	usLocationRe  = regexp.MustCompile(`\s+[A-Z]{2}\s+\d{5}(-\d{4})?$`)
)

var merchantPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^CHECKCARD\s+\d{4}\s+`),
	regexp.MustCompile(`(?i)^MOBILE\s+PURCHASE\s+\d{4}\s+`),
	regexp.MustCompile(`(?i)^POS\s+PURCHASE\s+\d{4}\s+`),
	regexp.MustCompile(`(?i)^RECURRING\s+PURCHASE\s+\d{4}\s+`),
	regexp.MustCompile(`(?i)^ONLINE\s+PURCHASE\s+\d{4}\s+`),
	regexp.MustCompile(`(?i)^DEBIT\s+CARD\s+PURCHASE\s+\d{4}\s+`),
	regexp.MustCompile(`(?i)^ACH\s+(DEBIT|CREDIT)\s+`),
	regexp.MustCompile(`(?i)^WIRE\s+(TRANSFER\s+)?(TO|FROM)\s+`),
	regexp.MustCompile(`(?i)^ZELLE\s+(TO|FROM|PAYMENT)\s+`),
	regexp.MustCompile(`(?i)^VENMO\s+PAYMENT\s+`),
	regexp.MustCompile(`(?i)^PAYPAL\s+(TRANSFER\s+)?`),
	regexp.MustCompile(`(?i)^DIRECT\s+(DEBIT|DEPOSIT)\s+`),
	regexp.MustCompile(`(?i)^ATM\s+WITHDRAWAL\s+`),
	regexp.MustCompile(`(?i)^CHECKCARD\s+`),
	regexp.MustCompile(`(?i)^MOBILE\s+PURCHASE\s+`),
	regexp.MustCompile(`(?i)^POS\s+PURCHASE\s+`),
}

// isIBFTReference reports whether the description looks like a bare
// UAE bank transfer reference, e.g. "530P79B7E39A6295 - M". References
// are long uppercase alphanumeric strings carrying several digits.
func isIBFTReference(description string) bool {
	clean := refSuffixRe.ReplaceAllString(strings.TrimSpace(description), "")
	return bankRefRe.MatchString(clean) && len(digitRe.FindAllString(clean, 4)) >= 3
}

// Categorize assigns a spending category using priority keyword rules.
// Pass the cleaned merchant name for best accuracy, or the raw
// description as fallback.
func Categorize(description string) string {
	desc := strings.ToLower(strings.TrimSpace(description))

	// Square payments carry the real merchant after "SQ *".
	if m := sqPrefixRe.FindStringSubmatch(desc); m != nil {
		if cat := Categorize(m[1]); cat != CategoryOther {
			return cat
		}
		return CategoryRetailShopping
	}

	if strings.Contains(desc, "mobn") || isIBFTReference(description) {
		return CategoryInternalTransfer
	}

	for _, kw := range []string{"salary", "payroll", "paycheck", "direct deposit", "wages", "commission payment", "bonus credit"} {
		if strings.Contains(desc, kw) {
			return CategorySalaryIncome
		}
	}

	for _, category := range categoryPriority {
		for _, keyword := range categoryKeywords[category] {
			if !strings.Contains(desc, keyword) {
				continue
			}
			switch category {
			case CategoryFinanceBanking:
				if containsAny(desc, financeTerms) {
					return category
				}
			case CategoryTechnology:
				if containsAny(desc, techTerms) {
					return category
				}
			default:
				return category
			}
		}
	}

	if containsAny(desc, []string{"taxi", "uber", "careem", "rta", "bolt", "indrive", "yango"}) {
		return CategoryTransportation
	}
	if containsAny(desc, []string{"restaurant", "cafe", "food", "dining", "talabat", "zomato", "deliveroo"}) {
		return CategoryFoodBeverage
	}
	if containsAny(desc, []string{"mall", "shop", "store", "retail", "noon", "amazon"}) {
		return CategoryRetailShopping
	}

	for merchant, cat := range merchantCategories {
		if strings.Contains(desc, merchant) {
			return cat
		}
	}

	return CategoryOther
}

// ExtractMerchant derives a clean merchant name from a raw statement
// description: bank prefixes, reference numbers, US location suffixes,
// and store numbers are stripped, then the result is title-cased.
func ExtractMerchant(description string) string {
	s := strings.TrimSpace(description)

	for _, re := range merchantPrefixes {
		s = strings.TrimSpace(re.ReplaceAllString(s, ""))
	}

	if m := sqPrefixRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	s = strings.TrimSpace(usLocationRe.ReplaceAllString(s, ""))
	s = strings.TrimSpace(longDigitsRe.ReplaceAllString(s, ""))
	s = strings.TrimSpace(longHexRe.ReplaceAllString(s, ""))
	s = strings.TrimSpace(recurringRe.ReplaceAllString(s, ""))
	s = strings.TrimSpace(storeNumberRe.ReplaceAllString(s, ""))

	result := strings.TrimSpace(titleCase(s))
	if result == "" {
		result = description
	}
	if len(result) > 60 {
		result = result[:60]
	}
	return result
}

// titleCase uppercases every letter that follows a non-letter, so
// "netflix.com" becomes "Netflix.Com" and "7-eleven" becomes
// "7-Eleven".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
			prevLetter = false
			b.WriteRune(r)
		case prevLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			prevLetter = true
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
