package domain

// Confidence is the coarse reliability tier of a resolution.
type Confidence string

// Confidence tiers, strongest first.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders tiers so they can be compared; high is largest.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// Cap lowers c to limit when c is stronger.
func (c Confidence) Cap(limit Confidence) Confidence {
	if c.Rank() > limit.Rank() {
		return limit
	}
	return c
}

// Method names the cascade strategy that produced a match.
type Method string

// Strategy names in cascade order.
const (
	MethodPrintedTotal  Method = "printed_total"
	MethodSetPartition  Method = "set_partition"
	MethodNameNumberSet Method = "name_number_set"
	MethodNameNumber    Method = "name_number"
	MethodFuzzyNumber   Method = "fuzzy_number"
	MethodNameSet       Method = "name_set"
	MethodNameOnly      Method = "name_only"
	MethodNone          Method = "none"
)

// Correction sources.
const (
	SourceCatalog = "catalog"
	SourceOCR     = "ocr"
	SourceIndex   = "index"
)

// Correction records a field the resolver believes the model got wrong.
type Correction struct {
	Field     string `json:"field"`
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Source    string `json:"source"`
}

// FeatureScores holds per-feature similarity in [0,1].
// A nil entry means the query did not carry that feature.
type FeatureScores struct {
	Name        *float64 `json:"name,omitempty"`
	Set         *float64 `json:"set,omitempty"`
	Number      *float64 `json:"number,omitempty"`
	Denominator *float64 `json:"denominator,omitempty"`
	Rarity      *float64 `json:"rarity,omitempty"`
}

// CandidateMatch is a scored catalog candidate.
type CandidateMatch struct {
	Card                ReferenceCard `json:"card"`
	Scores              FeatureScores `json:"scores"`
	Score               float64       `json:"score"`
	MatchedFeatures     int           `json:"matched_features"`
	TotalFeatures       int           `json:"total_features"`
	DenominatorMismatch bool          `json:"denominator_mismatch,omitempty"`
	Confidence          Confidence    `json:"confidence"`
	Warnings            []string      `json:"warnings,omitempty"`
}

// AddWarning records a soft validation warning. Any warning keeps the match
// out of the high tier.
func (m *CandidateMatch) AddWarning(w string) {
	m.Warnings = append(m.Warnings, w)
	m.Confidence = m.Confidence.Cap(ConfidenceMedium)
}

// OCROverride documents what OCR reconciliation changed before resolution.
type OCROverride struct {
	Breakdown      string `json:"breakdown"`
	Reconstructed  string `json:"reconstructed"`
	StatedNumber   string `json:"stated_number,omitempty"`
	StatedTotal    string `json:"stated_total,omitempty"`
	StatedSetName  string `json:"stated_set_name,omitempty"`
	StatedYear     string `json:"stated_year,omitempty"`
	HadMismatch    bool   `json:"had_mismatch"`
	DenominatorHit bool   `json:"denominator_hit"`
	FinalSetName   string `json:"final_set_name,omitempty"`
	FinalYear      string `json:"final_year,omitempty"`
}

// ResolutionResult is the only externally visible output of a resolution.
// Success implies Card is set and Confidence reflects every guard warning.
type ResolutionResult struct {
	Success     bool            `json:"success"`
	Card        *ReferenceCard  `json:"matched_card"`
	Confidence  Confidence      `json:"confidence"`
	Method      Method          `json:"method"`
	Corrections []Correction    `json:"corrections"`
	Error       string          `json:"error,omitempty"`
	Match       *CandidateMatch `json:"match,omitempty"`
	Override    *OCROverride    `json:"ocr_override,omitempty"`
	Format      string          `json:"number_format,omitempty"`
	Variants    []string        `json:"number_variants,omitempty"`
}

// Failed builds an unsuccessful result carrying reason.
func Failed(reason string, corrections []Correction) ResolutionResult {
	if corrections == nil {
		corrections = []Correction{}
	}
	return ResolutionResult{
		Success:     false,
		Confidence:  ConfidenceLow,
		Method:      MethodNone,
		Corrections: corrections,
		Error:       reason,
	}
}

// Patch lists the record fields a caller should overwrite after a match.
type Patch struct {
	CardName   *string `json:"card_name,omitempty"`
	SetName    *string `json:"set_name,omitempty"`
	Year       *string `json:"year,omitempty"`
	CardNumber *string `json:"card_number,omitempty"`
	CatalogID  string  `json:"catalog_id"`
}

// Patch projects the result onto the caller's record.
// Name, set and year are applied for high and medium matches that carried
// corrections; the printed number only for high matches.
// Returns nil when nothing was matched.
func (r *ResolutionResult) Patch() *Patch {
	if !r.Success || r.Card == nil {
		return nil
	}
	p := &Patch{CatalogID: r.Card.ID}
	if len(r.Corrections) == 0 || r.Confidence == ConfidenceLow {
		return p
	}
	name, set, year := r.Card.Name, r.Card.Set.Name, r.Card.YearString()
	p.CardName = &name
	p.SetName = &set
	if year != "" {
		p.Year = &year
	}
	if r.Confidence == ConfidenceHigh {
		number := r.Card.PrintedNumber()
		p.CardNumber = &number
	}
	return p
}
