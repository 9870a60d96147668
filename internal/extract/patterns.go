package extract

import (
	"regexp"
	"strings"
)

const (
	// DefaultCategory is used when no category pattern matches
	DefaultCategory = "Diğer"
	// DefaultCurrency is used when no currency pattern matches
	DefaultCurrency = "TRY"
	// DefaultDescription is used when no merchant name can be found
	DefaultDescription = "Fiş Taraması"
)

// rule pairs a pattern with the label it produces
type rule struct {
	pattern *regexp.Regexp
	label   string
}

// folder lower-cases text so that both dotted and dotless capital I fold to "i".
// OCR output mixes Turkish and ASCII capitals, so plain Turkish lower-casing
// would turn "TOTAL" into "totaı".
var folder = strings.NewReplacer("İ", "i", "I", "i")

func fold(s string) string {
	return strings.ToLower(folder.Replace(s))
}

// word builds a pattern matching term as a whole word. Go's \b only knows
// ASCII, so Turkish letters need an explicit boundary class.
func word(term string) string {
	return `(?:^|[^\p{L}\p{N}])(?:` + term + `)(?:[^\p{L}\p{N}]|$)`
}

func rules(pairs ...string) []rule {
	out := make([]rule, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, rule{pattern: regexp.MustCompile(pairs[i]), label: pairs[i+1]})
	}
	return out
}

func firstMatch(table []rule, folded string) (string, bool) {
	for _, r := range table {
		if r.pattern.MatchString(folded) {
			return r.label, true
		}
	}
	return "", false
}

// Patterns below are matched against folded text.

var categoryRules = rules(
	word(`migros|bim|a101|şok|carrefour(?:sa)?|file market|hakmar|metro|macrocenter|onur market|market|süpermarket|bakkal|manav|kasap`), "Market",
	word(`restoran|restaurant|lokanta|cafe|kafe|kahve|starbucks|burger|pizza|döner|kebap|pide|pastane|fırın|yemeksepeti`), "Yeme-İçme",
	word(`akaryakıt|benzin|motorin|opet|shell|petrol ofisi|total ?energies|bp|taksi|otopark|istanbulkart|otobüs`), "Ulaşım",
	word(`eczane|eczanesi|hastane|hastanesi|klinik|poliklinik|pharmacy|optik`), "Sağlık",
	word(`lc waikiki|koton|defacto|zara|h&m|mavi|boyner|giyim|tekstil|ayakkabı`), "Giyim",
	word(`teknosa|media ?markt|vatan bilgisayar|elektronik|apple|samsung`), "Elektronik",
	word(`elektrik|doğalgaz|igdaş|su faturası|turkcell|vodafone|türk telekom|superonline`), "Faturalar",
	word(`sinema|cinema|tiyatro|konser|biletix|passo`), "Eğlence",
	word(`kırtasiye|kitap|kitabevi|dershane|kurs|okul`), "Eğitim",
	word(`gratis|watsons|rossmann|kuaför|berber`), "Kişisel Bakım",
	word(`ikea|koçtaş|bauhaus|tekzen|mobilya|english home|madame coco`), "Ev",
)

var currencyRules = rules(
	`₺|`+word(`tl|try|türk lirası`), "TRY",
	`\$|`+word(`usd|dolar|dollar`), "USD",
	`€|`+word(`eur|euro`), "EUR",
	`£|`+word(`gbp|sterlin|pound`), "GBP",
)

var storeRules = rules(
	word(`migros`), "Migros",
	word(`macrocenter`), "Macrocenter",
	word(`bim`), "BİM",
	word(`a101`), "A101",
	word(`şok`), "ŞOK Market",
	word(`carrefour(?:sa)?`), "CarrefourSA",
	word(`file market`), "File Market",
	word(`hakmar`), "Hakmar",
	word(`metro`), "Metro",
	word(`starbucks`), "Starbucks",
	word(`opet`), "Opet",
	word(`shell`), "Shell",
	word(`petrol ofisi`), "Petrol Ofisi",
	word(`teknosa`), "Teknosa",
	word(`media ?markt`), "MediaMarkt",
	word(`lc waikiki`), "LC Waikiki",
	word(`koton`), "Koton",
	word(`defacto`), "DeFacto",
	word(`gratis`), "Gratis",
	word(`watsons`), "Watsons",
	word(`rossmann`), "Rossmann",
	word(`ikea`), "IKEA",
	word(`koçtaş`), "Koçtaş",
)

// itemCategoryRules is ordered so that household and personal care products
// are classified before food keywords they contain ("çamaşır suyu").
var itemCategoryRules = rules(
	word(`deterjan|çamaşır suyu|çamaşır|bulaşık|yumuşatıcı|temizleyici|çöp poşeti|peçete|tuvalet kağıdı|kağıt havlu|sabun`), "Temizlik",
	word(`şampuan|diş macunu|diş fırçası|deodorant|deo|krem|tıraş|duş jeli|parfüm`), "Kişisel Bakım",
	word(`bebek bezi|ıslak mendil|mama|biberon`), "Bebek",
	word(`süt|yoğurt|peynir|ayran|kefir|tereyağ[ıi]?|kaymak|lor|labne`), "Süt Ürünleri",
	word(`ekmek|simit|poğaça|açma|lavaş|pide|kek|pasta|börek`), "Fırın",
	word(`et|kıyma|tavuk|piliç|sucuk|salam|sosis|köfte|biftek|hindi|balık`), "Et & Tavuk",
	word(`su|maden suyu|soda|kola|cola|gazoz|meyve suyu|çay|kahve|bira|şarap|enerji içeceği|limonata`), "İçecek",
	word(`elma|armut|muz|portakal|mandalina|limon|üzüm|çilek|domates|patates|soğan|salatalık|biber|havuç|marul|maydanoz`), "Meyve & Sebze",
	word(`çikolata|cips|bisküvi|gofret|kraker|kuruyemiş|fıstık|dondurma|şeker(?:leme)?|lokum`), "Atıştırmalık",
	word(`makarna|pirinç|bulgur|un|tuz|yağ|ayçiçek|zeytinyağı|mercimek|nohut|fasulye|salça|yumurta|zeytin|bal|reçel`), "Temel Gıda",
)

var brandRules = rules(
	word(`ülker`), "Ülker",
	word(`eti`), "Eti",
	word(`torku`), "Torku",
	word(`pınar`), "Pınar",
	word(`sütaş`), "Sütaş",
	word(`içim`), "İçim",
	word(`sek`), "Sek",
	word(`danone`), "Danone",
	word(`nestle|nestlé`), "Nestlé",
	word(`coca[ -]?cola`), "Coca-Cola",
	word(`pepsi`), "Pepsi",
	word(`uludağ`), "Uludağ",
	word(`erikli`), "Erikli",
	word(`lipton`), "Lipton",
	word(`çaykur`), "Çaykur",
	word(`doğuş`), "Doğuş",
	word(`tat`), "Tat",
	word(`tamek`), "Tamek",
	word(`filiz`), "Filiz",
	word(`barilla`), "Barilla",
	word(`banvit`), "Banvit",
	word(`fairy`), "Fairy",
	word(`ariel`), "Ariel",
	word(`omo`), "Omo",
	word(`persil`), "Persil",
	word(`colgate`), "Colgate",
	word(`dove`), "Dove",
	word(`nivea`), "Nivea",
	word(`signal`), "Signal",
	word(`prima`), "Prima",
	word(`migros`), "Migros",
)

// numberPattern matches a price-shaped number: digits, optional thousands
// groups, and a two-digit decimal part.
const numberPattern = `\d+(?:[.,]\d{3})*[.,]\d{2}`

// labelled total patterns, most specific first. Matched against folded text.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`dahil\s*tutar\s*[:=]?\s*[*₺]?\s*(` + numberPattern + `)`),
	regexp.MustCompile(`toplam\s*tutar\s*[:=]?\s*[*₺]?\s*(` + numberPattern + `)`),
	regexp.MustCompile(`genel\s*toplam\s*[:=]?\s*[*₺]?\s*(` + numberPattern + `)`),
	regexp.MustCompile(`(?m)^\s*toplam\s*[:=]?\s*[*₺]?\s*(` + numberPattern + `)`),
	regexp.MustCompile(`tutar\s*[:=]?\s*[*₺]?\s*(` + numberPattern + `)`),
	regexp.MustCompile(`total\s*[:=]?\s*[*₺$€£]?\s*(` + numberPattern + `)`),
	regexp.MustCompile(`amount\s*[:=]?\s*[*₺$€£]?\s*(` + numberPattern + `)`),
	regexp.MustCompile(`[₺$€£]\s*(` + numberPattern + `)`),
}

// anyPrice is the fallback scan for price-shaped values anywhere in the text
var anyPrice = regexp.MustCompile(numberPattern)

var datePatterns = []struct {
	pattern *regexp.Regexp
	order   dateOrder
}{
	{regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{4})\b`), dayMonthYear},
	{regexp.MustCompile(`\b(\d{4})[./-](\d{1,2})[./-](\d{1,2})\b`), yearMonthDay},
	{regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{2})\b`), dayMonthShortYear},
}

// legalEntity matches company names ending in a Turkish or English legal suffix
var legalEntity = regexp.MustCompile(`(?im)^\s*([\p{L}\p{N}&.\- ]{2,60}?)\s+((?:A\.\s?Ş\.?|AŞ|LTD\.?(?:\s*ŞT[İIiı]\.?)?|ŞT[İIiı]\.?|INC\.?|LLC|GMBH)(?:\s+.*)?)\s*$`)

// notMerchantLine rejects header lines that are addresses, dates or numbers
var notMerchantLine = regexp.MustCompile(word(`mah|mahallesi|cad|caddesi|cd|sok|sokak|sk|bulvar[ıi]?|blv|no|tel|telefon|vergi|v\.?d|vkn|tckn|fiş|fis|tarih|saat|kasa|kasiyer|mersis|www|http`) + `|\d{2,}`)

// nonProductLine marks lines that can never be line items. Matched against folded text.
var nonProductLine = []*regexp.Regexp{
	regexp.MustCompile(word(`toplam|top|ara toplam|genel toplam|total|subtotal|tutar|kdv|topkdv|vergi|matrah|nakit|kredi kartı|kart|banka|para üstü|paraüstü|değişim|iade|indirim|iskonto|puan|bonus|onay|provizyon|pos|z no|ekü|fiş no|fis no|belge no|tarih|saat|kasiyer|kasa|tel|adres|mah|cad|sok|v\.?d|vkn|mersis|teşekkür|tesekkur|iyi günler`)),
	regexp.MustCompile(`^[\s\-=*_.#~]+$`),
	dateLike,
	regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`),
}

// negativeSign matches a minus sign directly before a price, with or without
// a currency symbol in between
var negativeSign = regexp.MustCompile(`[-−][₺$€£*]?$|[₺$€£*][-−]$`)

// dateLike matches dates so the unlabelled amount scan can skip them
var dateLike = regexp.MustCompile(`\b(?:\d{1,2}[./-]\d{1,2}[./-]\d{2,4}|\d{4}[./-]\d{1,2}[./-]\d{1,2})\b`)

// trailing price patterns, tried in order: symbol-prefixed, currency-suffixed, bare
var trailingPrice = []*regexp.Regexp{
	regexp.MustCompile(`[₺$€£*]\s*(` + numberPattern + `)\s*[A-Za-z]?\s*$`),
	regexp.MustCompile(`(?i)(` + numberPattern + `)\s*(?:TL|₺|TRY|USD|EUR)\s*$`),
	regexp.MustCompile(`(` + numberPattern + `)\s*$`),
}

var (
	// multiplication: "3 x 25,00", "3X25,00", "3 * 25,00", "3 @ 25,00"
	multiplyQuantity = regexp.MustCompile(`(?i)(?:^|\s)(\d{1,4})\s*(?:x|×|\*|@)\s*(` + numberPattern + `)`)
	// explicit count: "adet: 2", "adt 2", "2 adet", optionally followed by a unit price
	countQuantity = regexp.MustCompile(`(?i)(?:(?:adet|adt)\s*[:.]?\s*(\d{1,4})|(\d{1,4})\s*(?:adet|adt)\.?)(?:\s*(?:x|×|\*|@)\s*(` + numberPattern + `))?`)

	kdvRate       = regexp.MustCompile(`%\s*\d{1,2}`)
	specialChars  = regexp.MustCompile(`[^\p{L}\p{N}\s.,&%/\-']`)
	spaces        = regexp.MustCompile(`\s+`)
	leadingNumber = regexp.MustCompile(`^\d+\s+(\p{L})`)
	totalLikeName = regexp.MustCompile(word(`toplam|total|subtotal|ara top|tutar|kdv|nakit`))
)
