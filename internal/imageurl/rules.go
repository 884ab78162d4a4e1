package imageurl

import "regexp"

var stripQuery = Rewrite{Pattern: regexp.MustCompile(`\?.*$`)}

// DefaultRules returns the rule sets for the built-in suppliers.
func DefaultRules() []RuleSet {
	return []RuleSet{
		AmazonRules(),
		VevorRules(),
		CdiscountRules(),
		{Supplier: "Manomano", Hosts: []string{"manomano"}, Rewrites: []Rewrite{stripQuery}},
		{Supplier: "Leroy Merlin", Hosts: []string{"leroymerlin"}, Rewrites: []Rewrite{stripQuery}},
		{Supplier: "Gifi", Hosts: []string{"gifi"}, Rewrites: []Rewrite{stripQuery}},
		AliExpressRules(),
	}
}

// AmazonRules strip the size modifiers between "._" and "_." (e.g. _SX300_, _AC_SL1500_).
func AmazonRules() RuleSet {
	return RuleSet{
		Supplier: "Amazon",
		Hosts:    []string{"amazon"},
		Rewrites: []Rewrite{
			{Pattern: regexp.MustCompile(`\._[A-Z]{2}\d+_\.`), Replacement: "."},
			{Pattern: regexp.MustCompile(`\._AC_[A-Z]{2,4}\d+_\.`), Replacement: "."},
			{Pattern: regexp.MustCompile(`\._[A-Z]{2,4}\d+,\d+_\.`), Replacement: "."},
			{Pattern: regexp.MustCompile(`\._AC_U[LS]\d+_\.`), Replacement: "."},
			{Pattern: regexp.MustCompile(`(\._[A-Za-z0-9,_-]+_)+\.`), Replacement: "."},
			{Pattern: regexp.MustCompile(`\.{2,}`), Replacement: "."},
		},
	}
}

// VevorRules upgrade medium/small variants and fixed-size directories.
func VevorRules() RuleSet {
	return RuleSet{
		Supplier: "Vevor",
		Hosts:    []string{"vevor"},
		Rewrites: []Rewrite{
			{Pattern: regexp.MustCompile(`_medium\.`), Replacement: "_large."},
			{Pattern: regexp.MustCompile(`_small\.`), Replacement: "_large."},
			{Pattern: regexp.MustCompile(`/\d+x\d+/`), Replacement: "/original/"},
		},
	}
}

// CdiscountRules swap the one-letter quality tier for "f" (full).
func CdiscountRules() RuleSet {
	return RuleSet{
		Supplier: "Cdiscount",
		Hosts:    []string{"cdiscount", "cdscdn"},
		Rewrites: []Rewrite{
			{Pattern: regexp.MustCompile(`/[a-z]/`), Replacement: "/f/", FirstOnly: true},
		},
	}
}

// AliExpressRules drop query parameters and the trailing "_220x220.jpg_.webp" style suffixes.
func AliExpressRules() RuleSet {
	return RuleSet{
		Supplier: "AliExpress",
		Hosts:    []string{"aliexpress", "alicdn"},
		Rewrites: []Rewrite{
			stripQuery,
			{Pattern: regexp.MustCompile(`(?i)(\.(?:jpe?g|png|webp|avif))_[^/]*$`), Replacement: "$1"},
			{Pattern: regexp.MustCompile(`(_\d+x\d+)+\.`), Replacement: "."},
		},
	}
}
