package extract

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const migrosReceipt = `MIGROS TICARET A.S.
ATATURK MAH. CUMHURIYET CAD. NO:12
TARIH: 15.08.2024  SAAT: 14:32
FIS NO: 0042
SÜT 1 LT        3 x 25,00     *75,00
EKMEK                         *5,00
EKMEK                         *5,00
ÜLKER ÇİKOLATA                *32,50
TOPKDV                        *9,50
TOPLAM                        *117,50
NAKIT                         *120,00`

var _ = Describe("Score", func() {
	It("starts at 50 when nothing was found", func() {
		data := &ReceiptData{Category: DefaultCategory, Description: DefaultDescription}
		Expect(Score(data)).To(Equal(50))
	})

	It("adds a bonus per recovered field", func() {
		date := "2024-08-15"
		data := &ReceiptData{
			Amount:      10,
			Category:    "Market",
			Description: "Migros",
			Date:        &date,
			Items:       []ReceiptItem{{Name: "Ekmek", Quantity: 1, TotalPrice: 5}},
		}
		Expect(Score(data)).To(Equal(105))
	})
})

var _ = Describe("Confidence", func() {
	DescribeTable("averaging and clamping",
		func(score int, ocr float64, expected int) {
			Expect(Confidence(score, ocr)).To(Equal(expected))
		},
		Entry("averages with the engine", 70, 30.0, 50),
		Entry("clamps to the maximum", 105, 100.0, MaxConfidence),
		Entry("ignores a missing engine confidence", 60, -1.0, 60),
		Entry("clamps the raw score without an engine", 105, -1.0, MaxConfidence),
		Entry("rounds half up", 105, 80.0, 93),
	)
})

var _ = Describe("Extract", func() {
	var data *ReceiptData

	JustBeforeEach(func() {
		data = Extract(migrosReceipt, 80)
	})

	It("extracts the total", func() {
		Expect(data.Amount).To(Equal(117.50))
	})

	It("extracts the category and merchant", func() {
		Expect(data.Category).To(Equal("Market"))
		Expect(data.Description).To(Equal("Migros"))
	})

	It("defaults the currency", func() {
		Expect(data.Currency).To(Equal("TRY"))
	})

	It("extracts the date", func() {
		Expect(data.Date).NotTo(BeNil())
		Expect(*data.Date).To(Equal("2024-08-15"))
	})

	It("extracts the deduplicated items", func() {
		Expect(data.Items).To(HaveLen(3))
		Expect(data.Items[0].Name).To(Equal("SÜT 1 LT"))
		Expect(data.Items[1].Name).To(Equal("EKMEK"))
		Expect(data.Items[1].Quantity).To(Equal(2))
		Expect(data.Items[1].TotalPrice).To(Equal(10.00))
		Expect(data.Items[2].Name).To(Equal("ÜLKER ÇİKOLATA"))
	})

	It("averages the score with the OCR confidence", func() {
		Expect(data.Confidence).To(Equal(93))
	})

	When("the text is empty", func() {
		It("returns defaults", func() {
			empty := Extract("", -1)
			Expect(empty.Amount).To(BeZero())
			Expect(empty.Category).To(Equal(DefaultCategory))
			Expect(empty.Currency).To(Equal(DefaultCurrency))
			Expect(empty.Description).To(Equal(DefaultDescription))
			Expect(empty.Date).To(BeNil())
			Expect(empty.Items).To(BeNil())
			Expect(empty.Confidence).To(Equal(50))
		})
	})
})

var _ = Describe("Sanitize", func() {
	var data *ReceiptData

	BeforeEach(func() {
		date := "15/08/2024"
		unit := 10.0
		badUnit := 10.0
		data = &ReceiptData{
			Amount:      2_000_000,
			Category:    "groceries",
			Currency:    " usd ",
			Description: "  ",
			Date:        &date,
			Confidence:  140,
			Items: []ReceiptItem{
				{Name: "Elma", Quantity: 3, UnitPrice: &unit, TotalPrice: 30},
				{Name: "Armut", Quantity: 3, UnitPrice: &badUnit, TotalPrice: 50},
				{Name: "Kanepe", Quantity: 1, TotalPrice: 60_000},
				{Name: "", Quantity: 1, TotalPrice: 5},
			},
		}
	})

	JustBeforeEach(func() {
		Sanitize(data)
	})

	It("rejects an out of bounds amount", func() {
		Expect(data.Amount).To(BeZero())
	})

	It("maps unknown categories", func() {
		Expect(data.Category).To(Equal(DefaultCategory))
	})

	It("normalises the currency", func() {
		Expect(data.Currency).To(Equal("USD"))
	})

	It("defaults an empty description", func() {
		Expect(data.Description).To(Equal(DefaultDescription))
	})

	It("normalises the date", func() {
		Expect(*data.Date).To(Equal("2024-08-15"))
	})

	It("clamps the confidence", func() {
		Expect(data.Confidence).To(Equal(MaxConfidence))
	})

	It("drops invalid items and uncorroborated quantities", func() {
		Expect(data.Items).To(HaveLen(2))
		Expect(data.Items[0].Quantity).To(Equal(3))
		Expect(data.Items[1].Name).To(Equal("Armut"))
		Expect(data.Items[1].Quantity).To(Equal(1))
		Expect(data.Items[1].UnitPrice).To(BeNil())
	})
})
