package comparer

import (
	"encoding/json"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// JSONRawMessage compara payloads pelo conteúdo: ordem de chaves e espaços não importam.
// Um payload inválido nunca é igual a nada.
func JSONRawMessage() cmp.Option {
	return cmp.Comparer(func(x, y json.RawMessage) bool {
		if len(x) == 0 || len(y) == 0 {
			return len(x) == len(y)
		}

		var xValue, yValue any
		if err := json.Unmarshal(x, &xValue); err != nil {
			return false
		}
		if err := json.Unmarshal(y, &yValue); err != nil {
			return false
		}

		return reflect.DeepEqual(xValue, yValue)
	})
}
