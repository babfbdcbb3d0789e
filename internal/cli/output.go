package cli

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// print renders v in the selected output format.
func (a *app) print(v any) error {
	switch a.output {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("error marshaling output: %w", err)
		}
		_, err = a.out.Write(data)
		return err
	}
}
