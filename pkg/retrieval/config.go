package retrieval

// Config holds HybridSearcher's tunables. All fields are process-scoped and
// immutable once the searcher is constructed.
type Config struct {
	// RRFK is the additive constant in the RRF denominator.
	RRFK int `koanf:"rrf_k" yaml:"rrf_k"`

	// HybridDenseWeight and HybridSparseWeight are the RRF leg weights.
	HybridDenseWeight  float64 `koanf:"hybrid_dense_weight" yaml:"hybrid_dense_weight"`
	HybridSparseWeight float64 `koanf:"hybrid_sparse_weight" yaml:"hybrid_sparse_weight"`

	// UseSparse enables the sparse leg.
	UseSparse bool `koanf:"use_sparse" yaml:"use_sparse"`

	// HNSWEfSearch is the index accuracy knob passed to both legs.
	HNSWEfSearch int `koanf:"hnsw_ef_search" yaml:"hnsw_ef_search"`

	// Collection is the vector index collection name searched.
	Collection string `koanf:"collection" yaml:"collection"`

	// Multiplicative boost factors, applied in fixed order.
	BoostOverviewDocs   float64 `koanf:"boost_overview_docs" yaml:"boost_overview_docs"`
	BoostFAQGuides      float64 `koanf:"boost_faq_guides" yaml:"boost_faq_guides"`
	BoostTechnicalDocs  float64 `koanf:"boost_technical_docs" yaml:"boost_technical_docs"`
	BoostReleaseNotes   float64 `koanf:"boost_release_notes" yaml:"boost_release_notes"`
	BoostWellStructured float64 `koanf:"boost_well_structured" yaml:"boost_well_structured"`
	BoostOptimalLength  float64 `koanf:"boost_optimal_length" yaml:"boost_optimal_length"`
	BoostReliableSource float64 `koanf:"boost_reliable_source" yaml:"boost_reliable_source"`

	// ReliableSources is the allow-list for the source-reliability boost.
	ReliableSources []string `koanf:"reliable_sources" yaml:"reliable_sources"`
}

// SetDefaults applies the documented defaults, matching the values observed
// in the reference retrieval pipeline this component generalizes.
func (c *Config) SetDefaults() {
	if c.RRFK == 0 {
		c.RRFK = 60
	}
	if c.HybridDenseWeight == 0 {
		c.HybridDenseWeight = 0.5
	}
	if c.HybridSparseWeight == 0 {
		c.HybridSparseWeight = 0.5
	}
	if c.HNSWEfSearch == 0 {
		c.HNSWEfSearch = 128
	}
	if c.Collection == "" {
		c.Collection = "documents"
	}
	if c.BoostOverviewDocs == 0 {
		c.BoostOverviewDocs = 1.15
	}
	if c.BoostFAQGuides == 0 {
		c.BoostFAQGuides = 1.08
	}
	if c.BoostTechnicalDocs == 0 {
		c.BoostTechnicalDocs = 1.05
	}
	if c.BoostReleaseNotes == 0 {
		c.BoostReleaseNotes = 0.9
	}
	if c.BoostWellStructured == 0 {
		c.BoostWellStructured = 1.05
	}
	if c.BoostOptimalLength == 0 {
		c.BoostOptimalLength = 1.05
	}
	if c.BoostReliableSource == 0 {
		c.BoostReliableSource = 1.1
	}
	if len(c.ReliableSources) == 0 {
		c.ReliableSources = []string{"docs-site", "official-docs", "main-docs"}
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.RRFK <= 0 {
		return errConfig("rrf_k must be positive")
	}
	if c.HybridDenseWeight <= 0 && c.HybridSparseWeight <= 0 {
		return errConfig("at least one of hybrid_dense_weight/hybrid_sparse_weight must be positive")
	}
	if c.Collection == "" {
		return errConfig("collection is required")
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func errConfig(msg string) error { return configError("retrieval: " + msg) }
