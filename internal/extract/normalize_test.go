package extract

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"R$ 1.234,56", "1234.56"},
		{"-89,90", "-89.9"},
		{"123.45", "123.45"},
		{"1.000", "1000"},
		{"-R$ 30", "-30"},
		{"R$ -30,00", "-30"},
		{"50,00-", "-50"},
		{"5000,00", "5000"},
		{"1.234.567,89", "1234567.89"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "R$"} {
		_, err := ParseAmount(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		raw     string
		want    civil.Date
		wantErr bool
	}{
		{raw: "15/01", want: civil.Date{Year: 2024, Month: 1, Day: 15}},
		{raw: "15/01/23", want: civil.Date{Year: 2023, Month: 1, Day: 15}},
		{raw: "05/02/2022", want: civil.Date{Year: 2022, Month: 2, Day: 5}},
		{raw: "31/02/2024", wantErr: true},
		{raw: "aa/01", wantErr: true},
		{raw: "15", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDate(tt.raw, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "PIX JOAO silva", CleanDescription("  PIX  *JOAO*\tsilva!! "))
	assert.Equal(t, "Padaria São João - centro", CleanDescription("Padaria São João - centro."))
	assert.Equal(t, "", CleanDescription(" ** "))

	long := CleanDescription(strings.Repeat("a", 150))
	assert.Equal(t, 100, len(long))
}
