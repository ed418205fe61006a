package model

import "time"

// Step identifies a pipeline stage for audit records and flag origins
type Step string

const (
	StepExistence Step = "existence"
	StepHolding   Step = "holding"
	StepDicta     Step = "dicta"
	StepQuote     Step = "quote"
	StepBadLaw    Step = "bad_law"
	StepAuthority Step = "authority"
	StepCompile   Step = "compile"
)

// ExistenceStatus is the Step 1 outcome
type ExistenceStatus string

const (
	ExistenceVerified    ExistenceStatus = "VERIFIED"
	ExistenceUnpublished ExistenceStatus = "UNPUBLISHED"
	ExistenceNotFound    ExistenceStatus = "NOT_FOUND"
	ExistenceError       ExistenceStatus = "ERROR"
	ExistenceSkipped     ExistenceStatus = "SKIPPED"
)

// ExistenceResult is the Step 1 record. Confidence is fixed at 1.0 for any
// evaluated status: the lookup is binary, not probabilistic.
type ExistenceResult struct {
	Status     ExistenceStatus `json:"status"`
	Confidence float64         `json:"confidence"`
	ClusterID  string          `json:"cluster_id,omitempty"`
	CaseName   string          `json:"case_name,omitempty"`
	Court      string          `json:"court,omitempty"`
	DateFiled  time.Time       `json:"date_filed,omitempty"`
	URL        string          `json:"url,omitempty"`
	// OpinionText is best-effort; absence is not fatal.
	OpinionText string `json:"-"`
	// Source records which lookup answered: "primary" or "docket".
	Source   string        `json:"source,omitempty"`
	Duration time.Duration `json:"duration_ms"`
	Err      string        `json:"error,omitempty"`
}

// HoldingStatus is the Step 2 outcome
type HoldingStatus string

const (
	HoldingVerified  HoldingStatus = "VERIFIED"
	HoldingRejected  HoldingStatus = "REJECTED"
	HoldingUncertain HoldingStatus = "UNCERTAIN"
	HoldingSkipped   HoldingStatus = "SKIPPED"
)

// StageFinding is one adversarial stage's classification
type StageFinding struct {
	Status          HoldingStatus `json:"status"`
	Confidence      float64       `json:"confidence"`
	SupportingQuote string        `json:"supporting_quote,omitempty"`
	Reasoning       string        `json:"reasoning,omitempty"`
}

// HoldingResult is the Step 2 record
type HoldingResult struct {
	Status     HoldingStatus `json:"status"`
	Confidence float64       `json:"confidence"`
	Stage1     *StageFinding `json:"stage1,omitempty"`
	Stage2     *StageFinding `json:"stage2,omitempty"`
	Tiebroken  bool          `json:"tiebroken,omitempty"`
	HighStakes bool          `json:"high_stakes,omitempty"`
	Duration   time.Duration `json:"duration_ms"`
	Err        string        `json:"error,omitempty"`
}

// DictaClassification labels the cited passage's role in the opinion
type DictaClassification string

const (
	PassageHolding     DictaClassification = "HOLDING"
	PassageDicta       DictaClassification = "DICTA"
	PassageConcurrence DictaClassification = "CONCURRENCE"
	PassageDissent     DictaClassification = "DISSENT"
	PassageSkipped     DictaClassification = "SKIPPED"
)

// DictaAction is what the pipeline should do with the classification
type DictaAction string

const (
	DictaContinue DictaAction = "CONTINUE"
	DictaFlag     DictaAction = "FLAG"
	DictaNote     DictaAction = "NOTE"
)

// DictaResult is the Step 3 record
type DictaResult struct {
	Classification DictaClassification `json:"classification"`
	Action         DictaAction         `json:"action"`
	Confidence     float64             `json:"confidence"`
	Explanation    string              `json:"explanation,omitempty"`
	Duration       time.Duration       `json:"duration_ms"`
	Err            string              `json:"error,omitempty"`
}

// QuoteStatus is the Step 4 outcome
type QuoteStatus string

const (
	QuoteExactMatch    QuoteStatus = "EXACT_MATCH"
	QuoteCloseMatch    QuoteStatus = "CLOSE_MATCH"
	QuotePartialMatch  QuoteStatus = "PARTIAL_MATCH"
	QuoteNotFound      QuoteStatus = "NOT_FOUND"
	QuoteNotApplicable QuoteStatus = "NOT_APPLICABLE" // no direct quote in the proposition
	QuoteSkipped       QuoteStatus = "SKIPPED"
)

// QuoteAction is the recommended handling for a quote verification outcome
type QuoteAction string

const (
	QuoteProceed     QuoteAction = "PROCEED"
	QuoteAutoCorrect QuoteAction = "AUTO_CORRECT"
	QuoteFlagAction  QuoteAction = "FLAG"
	QuoteRemove      QuoteAction = "REMOVE"
	QuoteNoAction    QuoteAction = "NONE"
)

// QuoteResult is the Step 4 record. Similarity is 1 - editDistance/maxLen
// over the best matching window.
type QuoteResult struct {
	Status      QuoteStatus   `json:"status"`
	Action      QuoteAction   `json:"action"`
	Similarity  float64       `json:"similarity"`
	MatchedText string        `json:"matched_text,omitempty"`
	Corrected   string        `json:"corrected,omitempty"` // set on AUTO_CORRECT
	Duration    time.Duration `json:"duration_ms"`
	Err         string        `json:"error,omitempty"`
}

// BadLawStatus is the Step 5 outcome
type BadLawStatus string

const (
	BadLawGood              BadLawStatus = "GOOD_LAW"
	BadLawCaution           BadLawStatus = "CAUTION"
	BadLawNegativeTreatment BadLawStatus = "NEGATIVE_TREATMENT"
	BadLawOverruled         BadLawStatus = "OVERRULED"
	BadLawSkipped           BadLawStatus = "SKIPPED"
)

// TreatmentCounts aggregates forward-citation treatment signals (Layer 1)
type TreatmentCounts struct {
	Total    int `json:"total"`
	Negative int `json:"negative"`
	Positive int `json:"positive"`
}

// BadLawResult is the Step 5 record
type BadLawResult struct {
	Status     BadLawStatus    `json:"status"`
	Confidence float64         `json:"confidence"`
	Treatment  TreatmentCounts `json:"treatment"`
	// OverruledBy is set when Layer 2 matched the curated overruled record.
	OverruledBy string        `json:"overruled_by,omitempty"`
	Layer3Ran   bool          `json:"layer3_ran"`
	Explanation string        `json:"explanation,omitempty"`
	Duration    time.Duration `json:"duration_ms"`
	Err         string        `json:"error,omitempty"`
}

// AuthorityClass is the Step 6 classification
type AuthorityClass string

const (
	AuthorityLandmark      AuthorityClass = "LANDMARK"
	AuthorityEstablished   AuthorityClass = "ESTABLISHED"
	AuthorityRecent        AuthorityClass = "RECENT"
	AuthorityDeclining     AuthorityClass = "DECLINING"
	AuthorityControversial AuthorityClass = "CONTROVERSIAL"
	AuthoritySkipped       AuthorityClass = "SKIPPED"
)

// AuthorityMetrics are the raw inputs to the strength score
type AuthorityMetrics struct {
	TotalCitations  int  `json:"total_citations"`
	CitationsLast5  int  `json:"citations_last_5y"`
	CitationsLast10 int  `json:"citations_last_10y"`
	Distinguished   int  `json:"distinguished"`
	Criticized      int  `json:"criticized"`
	CourtLevel      int  `json:"court_level"` // 3 supreme, 2 appellate, 1 trial
	Published       bool `json:"published"`
	AgeYears        int  `json:"age_years"`
}

// AuthorityResult is the Step 6 record. Score is 0-100.
type AuthorityResult struct {
	Class    AuthorityClass     `json:"class"`
	Score    float64            `json:"score"`
	Metrics  AuthorityMetrics   `json:"metrics"`
	Subs     map[string]float64 `json:"subscores,omitempty"` // transparent sub-score breakdown
	Duration time.Duration      `json:"duration_ms"`
	Err      string             `json:"error,omitempty"`
}

// SkippedExistence returns the named skipped variant for Step 1.
func SkippedExistence() ExistenceResult {
	return ExistenceResult{Status: ExistenceSkipped}
}

// SkippedHolding returns the named skipped variant for Step 2.
func SkippedHolding() HoldingResult {
	return HoldingResult{Status: HoldingSkipped}
}

// SkippedDicta returns the named skipped variant for Step 3.
func SkippedDicta() DictaResult {
	return DictaResult{Classification: PassageSkipped, Action: DictaNote}
}

// SkippedQuote returns the named skipped variant for Step 4.
func SkippedQuote() QuoteResult {
	return QuoteResult{Status: QuoteSkipped, Action: QuoteNoAction}
}

// SkippedBadLaw returns the named skipped variant for Step 5.
func SkippedBadLaw() BadLawResult {
	return BadLawResult{Status: BadLawSkipped}
}

// SkippedAuthority returns the named skipped variant for Step 6.
func SkippedAuthority() AuthorityResult {
	return AuthorityResult{Class: AuthoritySkipped}
}
