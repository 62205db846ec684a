package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/buyercheck/backend/internal/domain"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    domain.NormalizedAddress
	}{
		{
			name:    "full address",
			address: "Lot 5, Jalan Ampang, Taman Maju, 50450, Kuala Lumpur, Wilayah Persekutuan, Malaysia",
			want: domain.NormalizedAddress{
				Line1:    "Lot 5",
				Line2:    "Jalan Ampang",
				Line3:    "Taman Maju",
				Postcode: "50450",
				City:     "Kuala Lumpur",
				State:    "Wilayah Persekutuan",
				Country:  "Malaysia",
			},
		},
		{
			name:    "single street line",
			address: "12 Jalan Ampang, 50450, Kuala Lumpur, Selangor, Malaysia",
			want: domain.NormalizedAddress{
				Line1:    "12 Jalan Ampang",
				Postcode: "50450",
				City:     "Kuala Lumpur",
				State:    "Selangor",
				Country:  "Malaysia",
			},
		},
		{
			name:    "no postcode keeps every street line",
			address: "Lot 5, Jalan Ampang, Kuala Lumpur, Selangor, Malaysia",
			want: domain.NormalizedAddress{
				Line1:   "Lot 5",
				Line2:   "Jalan Ampang",
				City:    "Kuala Lumpur",
				State:   "Selangor",
				Country: "Malaysia",
			},
		},
		{
			name:    "trims and skips empty parts",
			address: "  Lot 5 ,, Jalan 1/2 ,50000 , Kuala Lumpur,Wilayah Persekutuan ,Malaysia,",
			want: domain.NormalizedAddress{
				Line1:    "Lot 5",
				Line2:    "Jalan 1/2",
				Postcode: "50000",
				City:     "Kuala Lumpur",
				State:    "Wilayah Persekutuan",
				Country:  "Malaysia",
			},
		},
		{
			name:    "extra lines fold into line3",
			address: "A, B, C, D, 10000, City, State, Country",
			want: domain.NormalizedAddress{
				Line1:    "A",
				Line2:    "B",
				Line3:    "C, D",
				Postcode: "10000",
				City:     "City",
				State:    "State",
				Country:  "Country",
			},
		},
		{
			name:    "short address",
			address: "Selangor, Malaysia",
			want: domain.NormalizedAddress{
				State:   "Selangor",
				Country: "Malaysia",
			},
		},
		{
			name:    "empty",
			address: "",
			want:    domain.NormalizedAddress{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.address))
		})
	}
}
