// AngelaMos | 2026
// features.go

package consultation

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/mystic-backend/internal/core"
	"github.com/carterperez-dev/mystic-backend/internal/extract"
	"github.com/carterperez-dev/mystic-backend/internal/numerology"
)

// Input is a validated consultation form.
type Input interface {
	// Tier is the price table key chosen by the form.
	Tier() string
	// Questions is the ordered list the generation step iterates.
	Questions() []string
}

// trimmer is implemented by inputs whose free text is trimmed before the
// length rules run.
type trimmer interface {
	Trim()
}

// preparer is implemented by inputs that need checks beyond struct tags or
// derive metadata before the record is stored.
type preparer interface {
	Prepare(now time.Time) (Object, error)
}

// Feature describes one consultation kind.
type Feature struct {
	Kind   Kind
	Table  string
	Title  string
	Paid   bool
	Prices map[string]decimal.Decimal

	newInput func() Input
	extract  func(responses []string) Object
}

// Price resolves the tier against the price table. Unknown tiers resolve to
// zero; payment creation refuses zero prices.
func (f *Feature) Price(tier string) decimal.Decimal {
	if p, ok := f.Prices[tier]; ok {
		return p
	}
	return decimal.Zero
}

func (f *Feature) PriceTable() []PriceEntry {
	entries := make([]PriceEntry, 0, len(f.Prices))
	for tier, price := range f.Prices {
		entries = append(entries, PriceEntry{Tier: tier, Price: price.StringFixed(2)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return f.Prices[entries[i].Tier].LessThan(f.Prices[entries[j].Tier])
	})
	return entries
}

func (f *Feature) Extract(responses []string) Object {
	if f.extract == nil {
		return nil
	}
	return f.extract(responses)
}

func prices(table map[string]string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(table))
	for tier, p := range table {
		out[tier] = decimal.RequireFromString(p)
	}
	return out
}

type TarotInput struct {
	Context           string   `json:"context"           validate:"required,notblank,min=10,max=2000"`
	QuestionList      []string `json:"questions"         validate:"required,min=1,max=5,dive,required,notblank,max=500"`
	NumberOfQuestions int      `json:"numberOfQuestions" validate:"required,min=1,max=5"`
}

func (in *TarotInput) Tier() string        { return strconv.Itoa(in.NumberOfQuestions) }
func (in *TarotInput) Questions() []string { return in.QuestionList }

func (in *TarotInput) Trim() {
	in.Context = strings.TrimSpace(in.Context)
	for i, q := range in.QuestionList {
		in.QuestionList[i] = strings.TrimSpace(q)
	}
}

// Prepare ties the priced tier to the questions actually asked.
func (in *TarotInput) Prepare(time.Time) (Object, error) {
	if len(in.QuestionList) != in.NumberOfQuestions {
		return nil, core.InvalidInput("numberOfQuestions is %d but %d questions were sent",
			in.NumberOfQuestions, len(in.QuestionList))
	}
	return nil, nil
}

type DreamInput struct {
	DreamDescription string `json:"dreamDescription" validate:"required,notblank,min=20,max=5000"`
}

func (in *DreamInput) Tier() string        { return "" }
func (in *DreamInput) Questions() []string { return []string{in.DreamDescription} }
func (in *DreamInput) Trim()               { in.DreamDescription = strings.TrimSpace(in.DreamDescription) }

var astralThemes = map[string][]string{
	"basic": {"Complete natal chart overview"},
	"premium": {
		"Complete natal chart overview",
		"Love and relationships",
		"Career and life purpose",
		"Spiritual path and karmic lessons",
	},
}

type AstralInput struct {
	Name          string `json:"name,omitempty" validate:"omitempty,max=200"`
	BirthDate     string `json:"birthDate"      validate:"required,datetime=2006-01-02"`
	BirthTime     string `json:"birthTime"      validate:"required,datetime=15:04"`
	BirthLocation string `json:"birthLocation"  validate:"required,notblank,max=200"`
	PackageType   string `json:"packageType"    validate:"required,oneof=basic premium"`
}

func (in *AstralInput) Tier() string        { return in.PackageType }
func (in *AstralInput) Questions() []string { return astralThemes[in.PackageType] }

func (in *AstralInput) Trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.BirthLocation = strings.TrimSpace(in.BirthLocation)
}

type OracleInput struct {
	OracleType      string `json:"oracleType"      validate:"required,oneof=runas anjos buzios"`
	Question        string `json:"question"        validate:"required,notblank,min=10,max=1000"`
	NumberOfSymbols int    `json:"numberOfSymbols" validate:"required,min=1,max=5"`
}

func (in *OracleInput) Tier() string        { return strconv.Itoa(in.NumberOfSymbols) }
func (in *OracleInput) Questions() []string { return []string{in.Question} }
func (in *OracleInput) Trim()               { in.Question = strings.TrimSpace(in.Question) }

type RadionicInput struct {
	Question string `json:"question" validate:"required,notblank,min=10,max=1000"`
}

func (in *RadionicInput) Tier() string        { return "" }
func (in *RadionicInput) Questions() []string { return []string{in.Question} }
func (in *RadionicInput) Trim()               { in.Question = strings.TrimSpace(in.Question) }

type EnergyInput struct {
	Topic string `json:"topic" validate:"required,notblank,min=5,max=255"`
}

func (in *EnergyInput) Tier() string        { return "" }
func (in *EnergyInput) Questions() []string { return []string{in.Topic} }
func (in *EnergyInput) Trim()               { in.Topic = strings.TrimSpace(in.Topic) }

type NumerologyInput struct {
	FullName  string `json:"fullName"  validate:"required,notblank,max=200"`
	BirthDate string `json:"birthDate" validate:"required"`

	reading numerology.Reading
}

func (in *NumerologyInput) Tier() string        { return "standard" }
func (in *NumerologyInput) Questions() []string { return in.reading.Topics(in.FullName) }

func (in *NumerologyInput) Trim() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.BirthDate = strings.TrimSpace(in.BirthDate)
}

func (in *NumerologyInput) Prepare(now time.Time) (Object, error) {
	birth, err := numerology.ParseBirthDate(in.BirthDate)
	if err != nil {
		return nil, err
	}
	if birth.After(now) {
		return nil, core.InvalidInput("birthDate must not be in the future")
	}

	reading, err := numerology.Calculate(in.FullName, birth, now)
	if err != nil {
		return nil, err
	}
	in.reading = reading

	return Object{
		"destiny":      reading.Destiny,
		"soul":         reading.Soul,
		"personality":  reading.Personality,
		"expression":   reading.Expression,
		"personalYear": reading.PersonalYear,
	}, nil
}

func symbolsOf(responses []string) Object {
	symbols := []string{}
	for _, r := range responses {
		symbols = append(symbols, extract.Symbols(r)...)
	}
	return Object{"symbols": symbols}
}

func firstResponse(responses []string) string {
	if len(responses) == 0 {
		return ""
	}
	return responses[0]
}

// DefaultFeatures returns every consultation kind keyed by its URL name.
func DefaultFeatures() map[Kind]*Feature {
	features := []*Feature{
		{
			Kind:     KindTarot,
			Table:    "tarot_consultations",
			Title:    "Tarot reading",
			Paid:     true,
			Prices:   prices(map[string]string{"1": "3.00", "2": "5.00", "3": "7.00", "5": "10.00"}),
			newInput: func() Input { return &TarotInput{} },
		},
		{
			Kind:     KindDream,
			Table:    "dream_interpretations",
			Title:    "Dream interpretation",
			newInput: func() Input { return &DreamInput{} },
			extract:  symbolsOf,
		},
		{
			Kind:     KindAstral,
			Table:    "astral_maps",
			Title:    "Astral map",
			Paid:     true,
			Prices:   prices(map[string]string{"basic": "30.00", "premium": "50.00"}),
			newInput: func() Input { return &AstralInput{} },
		},
		{
			Kind:     KindOracle,
			Table:    "oracle_consultations",
			Title:    "Oracle consultation",
			Paid:     true,
			Prices:   prices(map[string]string{"1": "5.00", "3": "12.00", "5": "20.00"}),
			newInput: func() Input { return &OracleInput{} },
			extract:  symbolsOf,
		},
		{
			Kind:     KindRadionic,
			Table:    "radionic_tables",
			Title:    "Radionic table",
			newInput: func() Input { return &RadionicInput{} },
			extract: func(responses []string) Object {
				return Object{"energyFrequency": extract.EnergyFrequency(firstResponse(responses))}
			},
		},
		{
			Kind:     KindEnergy,
			Table:    "energy_guidance",
			Title:    "Energy guidance",
			newInput: func() Input { return &EnergyInput{} },
			extract: func(responses []string) Object {
				return Object{"chakraFocus": extract.ChakraFocus(firstResponse(responses))}
			},
		},
		{
			Kind:     KindNumerology,
			Table:    "numerology_readings",
			Title:    "Numerology reading",
			Paid:     true,
			Prices:   prices(map[string]string{"standard": "25.00"}),
			newInput: func() Input { return &NumerologyInput{} },
		},
	}

	out := make(map[Kind]*Feature, len(features))
	for _, f := range features {
		out[f.Kind] = f
	}
	return out
}

type PriceEntry struct {
	Tier  string `json:"tier"`
	Price string `json:"price"`
}
