package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/config"
	"github.com/sells-group/prospector/internal/model"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return New(cfg.Classify)
}

func TestClassify(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name     string
		cand     model.Candidate
		want     Kind
	}{
		{
			name: "plain association",
			cand: model.Candidate{Name: "Westchase Community Association", Category: "Homeowners association"},
			want: KindAssociation,
		},
		{
			name: "irrelevant category drops it",
			cand: model.Candidate{Name: "HOA Kitchen & Bar", Category: "Restaurant"},
			want: KindIrrelevant,
		},
		{
			name: "category overrides association-sounding name",
			cand: model.Candidate{Name: "Community Association Cafe", Category: "Cafe"},
			want: KindIrrelevant,
		},
		{
			name: "management category flags regardless of name",
			cand: model.Candidate{Name: "Sunrise Village", Category: "Property management company"},
			want: KindManagement,
		},
		{
			name: "management signal in name",
			cand: model.Candidate{Name: "Gulf Coast HOA Management LLC", Category: "Homeowners association"},
			want: KindManagement,
		},
		{
			name: "empty category falls back to name",
			cand: model.Candidate{Name: "Palm Breeze Property Management"},
			want: KindManagement,
		},
		{
			name: "empty category and neutral name",
			cand: model.Candidate{Name: "Palm Breeze Estates"},
			want: KindAssociation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.cand))
		})
	}
}
