package config

// DomainConfig holds the business limits enforced by the topic aggregate.
type DomainConfig struct {
	// Topic constraints
	MaxTitleLength   int
	MaxNodesPerTopic int
	MaxEdgesPerTopic int

	// Node constraints
	MaxNodeTextLength int

	// Score range, inclusive
	MinScore int
	MaxScore int

	// Username constraints
	MaxUsernameLength int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxTitleLength:    100,
		MaxNodesPerTopic:  1000,
		MaxEdgesPerTopic:  5000,
		MaxNodeTextLength: 200,
		MinScore:          1,
		MaxScore:          10,
		MaxUsernameLength: 39,
	}
}

