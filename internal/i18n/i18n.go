// Package i18n translates report labels and formats amounts per locale.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

var supported = []language.Tag{language.English, language.Indonesian}

var matcher = language.NewMatcher(supported)

var indonesian = map[string]string{
	"Company":                      "Perusahaan",
	"Finance Book":                 "Buku Keuangan",
	"Filter Based On":              "Filter Berdasarkan",
	"Start Date":                   "Tanggal Mulai",
	"End Date":                     "Tanggal Akhir",
	"Start Year":                   "Tahun Awal",
	"End Year":                     "Tahun Akhir",
	"Periodicity":                  "Periodisitas",
	"Currency":                     "Mata Uang",
	"Cost Center":                  "Pusat Biaya",
	"Accumulated Values":           "Nilai Akumulasi",
	"Project":                      "Proyek",
	"Include Default Book Entries": "Sertakan Entri Buku Default",
	"Ratio":                        "Rasio",
	"Total":                        "Total",
	"Net Profit Margin":            "Margin Laba Bersih",
	"Profit for the year":          "Laba tahun berjalan",
	"Net Profit":                   "Laba Bersih",
	"Total Income":                 "Total Pendapatan",
	"Total Expense":                "Total Beban",
	"Profit This Year":             "Laba Tahun Ini",
	"Total Income This Year":       "Total Pendapatan Tahun Ini",
	"Total Expense This Year":      "Total Beban Tahun Ini",
	"Department":                   "Departemen",
	"Branch":                       "Cabang",
	"Location":                     "Lokasi",
	"Region":                       "Wilayah",
	"Business Unit":                "Unit Bisnis",
	"Sales Channel":                "Saluran Penjualan",
	"Product Line":                 "Lini Produk",
	"Campaign":                     "Kampanye",
	"Fund":                         "Dana",
	"Segment":                      "Segmen",
	"Warehouse":                    "Gudang",
	"Customer Group":               "Grup Pelanggan",
	"Financial Ratios":             "Rasio Keuangan",
	"Profit and Loss Statement":    "Laporan Laba Rugi",
}

var builtin = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range indonesian {
		_ = b.SetString(language.Indonesian, key, msg)
	}
	return b
}

// Translator resolves labels for a single locale.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a translator for the closest supported match of lang.
func New(lang string) *Translator {
	tag, _, _ := matcher.Match(language.Make(lang))
	base, _ := tag.Base()
	tag = language.Make(base.String())
	return &Translator{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builtin))}
}

// T translates label, returning it unchanged when no translation exists.
func (t *Translator) T(label string) string {
	if t == nil || t.printer == nil {
		return label
	}
	return t.printer.Sprintf(label)
}

// Amount formats v with two decimals using the locale's separators.
func (t *Translator) Amount(v float64) string {
	if t == nil || t.printer == nil {
		return message.NewPrinter(language.English).Sprint(number.Decimal(v, number.Scale(2)))
	}
	return t.printer.Sprint(number.Decimal(v, number.Scale(2)))
}

// Language returns the BCP 47 tag in use.
func (t *Translator) Language() string {
	if t == nil {
		return language.English.String()
	}
	return t.tag.String()
}
