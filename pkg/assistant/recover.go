package assistant

import (
	"github.com/formdeck/formdeck/pkg/aischema"
	"github.com/formdeck/formdeck/pkg/forms"
	"github.com/formdeck/formdeck/pkg/jsonpatch"
	"github.com/formdeck/formdeck/pkg/providers"
)

// RecoverFromRaw re-runs the patch/replace pipeline directly against raw
// provider text. Callers use it as a best-effort fallback when the primary
// structured path failed but the preserved text may still contain a
// recoverable JSON body.
func RecoverFromRaw(current forms.FormDefinition, raw string) (*forms.FormDefinition, error) {
	parsed, err := providers.ParseLoose(raw)
	if err != nil {
		return nil, err
	}
	resp, err := aischema.Parse(parsed)
	if err != nil {
		return nil, err
	}

	var next forms.FormDefinition
	switch resp.Type {
	case aischema.TypePatch:
		next, err = jsonpatch.Apply(current, resp.Operations)
		if err != nil {
			return nil, err
		}
	case aischema.TypeReplace:
		next = resp.FormDefinition.Clone()
	}
	next.Fields = forms.NormalizeOrder(next.Fields)
	return &next, nil
}
