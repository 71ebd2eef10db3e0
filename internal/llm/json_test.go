package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-insights/internal/domain"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Claro! Aqui está:\n{\"a\":{\"b\":2}}\nEspero ter ajudado.", `{"a":{"b":2}}`},
		{"brace inside string", `{"d":"compra {loja}"} trailing }`, `{"d":"compra {loja}"}`},
		{"escaped quote", `{"d":"a \"}\" b"}`, `{"d":"a \"}\" b"}`},
		{"first of two", `{"x":1} {"y":2}`, `{"x":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONObject_Missing(t *testing.T) {
	for _, raw := range []string{"", "sem json aqui", "[1,2,3]", `{"unterminated": 1`} {
		_, err := ExtractJSONObject(raw)
		assert.ErrorIs(t, err, domain.ErrJSONParsing, raw)
	}
}
