package rules

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultCatalogYAML []byte

// Catalog is a versioned set of rules loaded from a YAML document.
type Catalog struct {
	PackVersion string
	Rules       []Rule
}

type catalogDoc struct {
	PackVersion string    `yaml:"pack_version"`
	CompanyID   *int64    `yaml:"company_id"`
	Rules       []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	Code          string      `yaml:"code"`
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description"`
	SourceType    string      `yaml:"source_type"`
	TriggerEvent  string      `yaml:"trigger_event"`
	Priority      int         `yaml:"priority"`
	Default       bool        `yaml:"default"`
	Inactive      bool        `yaml:"inactive"`
	Conditions    []Condition `yaml:"conditions"`
	Template      Template    `yaml:"template"`
	EffectiveFrom string      `yaml:"effective_from"`
	EffectiveTo   string      `yaml:"effective_to"`
	FiscalYear    string      `yaml:"fiscal_year"`
}

// ParseCatalog decodes a YAML catalog. Rules inherit the document's company scope and
// pack version.
func ParseCatalog(data []byte) (Catalog, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Catalog{}, fmt.Errorf("rules: decode catalog: %w", err)
	}
	cat := Catalog{PackVersion: doc.PackVersion, Rules: make([]Rule, 0, len(doc.Rules))}
	for _, rd := range doc.Rules {
		from, err := parseDay(rd.EffectiveFrom)
		if err != nil {
			return Catalog{}, fmt.Errorf("rules: %s effective_from: %w", rd.Code, err)
		}
		r := Rule{
			CompanyID:     doc.CompanyID,
			Code:          rd.Code,
			Name:          rd.Name,
			Description:   rd.Description,
			SourceType:    rd.SourceType,
			TriggerEvent:  rd.TriggerEvent,
			Priority:      rd.Priority,
			IsActive:      !rd.Inactive,
			IsDefault:     rd.Default,
			Conditions:    rd.Conditions,
			Template:      rd.Template,
			EffectiveFrom: from,
			FiscalYear:    rd.FiscalYear,
			PackVersion:   doc.PackVersion,
		}
		if rd.EffectiveTo != "" {
			to, err := parseDay(rd.EffectiveTo)
			if err != nil {
				return Catalog{}, fmt.Errorf("rules: %s effective_to: %w", rd.Code, err)
			}
			r.EffectiveTo = &to
		}
		cat.Rules = append(cat.Rules, r)
	}
	return cat, nil
}

// DefaultCatalog returns the embedded global rule pack.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

func parseDay(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("date required")
	}
	return time.Parse("2006-01-02", v)
}
