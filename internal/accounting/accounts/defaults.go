package accounts

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultChartYAML []byte

type chartFile struct {
	Accounts []chartNode `yaml:"accounts"`
}

type chartNode struct {
	Code    string      `yaml:"code"`
	Name    string      `yaml:"name"`
	Type    AccountType `yaml:"type"`
	Normal  string      `yaml:"normal"`
	Parent  string      `yaml:"parent"`
	Control ControlType `yaml:"control"`
}

// DefaultChart returns the embedded global chart as create inputs in parent-first order.
func DefaultChart() ([]CreateInput, error) {
	return ParseChart(defaultChartYAML)
}

// ParseChart decodes a YAML chart definition.
func ParseChart(data []byte) ([]CreateInput, error) {
	var file chartFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	seen := make(map[string]bool, len(file.Accounts))
	out := make([]CreateInput, 0, len(file.Accounts))
	for _, node := range file.Accounts {
		if seen[node.Code] {
			return nil, fmt.Errorf("chart: duplicate code %s", node.Code)
		}
		if node.Parent != "" && !seen[node.Parent] {
			return nil, fmt.Errorf("chart: %s references parent %s before it is defined", node.Code, node.Parent)
		}
		seen[node.Code] = true
		out = append(out, CreateInput{
			Code:          node.Code,
			Name:          node.Name,
			Type:          node.Type,
			NormalBalance: NormalBalance(node.Normal),
			ParentCode:    node.Parent,
			IsControl:     node.Control != ControlNone,
			ControlType:   node.Control,
		})
	}
	return out, nil
}

// BuildChart materialises inputs into an in-memory chart with sequential ids,
// applying the same checks as Service.Create. Used to validate rule catalogs
// without a database.
func BuildChart(inputs []CreateInput) (Chart, error) {
	list := make([]Account, 0, len(inputs))
	for i, in := range inputs {
		acc, err := build(in, NewChart(list))
		if err != nil {
			return Chart{}, err
		}
		acc.ID = int64(i + 1)
		acc.IsActive = true
		list = append(list, acc)
	}
	return NewChart(list), nil
}
