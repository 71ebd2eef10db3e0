package pipeline

const (
	// Version is reported in ProcessingMetrics.
	Version = "3.0.0"

	// DefaultFileName is used when a job carries inline text without a name.
	DefaultFileName = "documento.txt"

	// Stage names used in domain.StageError.
	StageDetect     = "detect_bank"
	StageExtract    = "extract_transactions"
	StageCategorize = "categorize"
	StageAnalyze    = "analyze"
	StageValidate   = "cross_validate"
	StageReport     = "report"
	StageFetch      = "fetch_document"
	StagePersist    = "persist"
)
