package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEmails(t *testing.T) {
	text := `Contact us at info@westchase.example.com or reach our manager
	directly at jane.smith@westchase.example.com. Do not use
	noreply@westchase.example.com. Logo: sprite@2x.png`

	got := ExtractEmails(text)
	require.Len(t, got, 2)
	assert.Equal(t, "jane.smith@westchase.example.com", got[0], "personal address ranks first")
	assert.Equal(t, "info@westchase.example.com", got[1])
}

func TestExtractEmailsGenericOnly(t *testing.T) {
	// For a small association the role inbox is still a real contact.
	got := ExtractEmails("Questions? board@hiddenoaks.example.org")
	require.Len(t, got, 1)
	assert.Equal(t, "board@hiddenoaks.example.org", got[0])
}

func TestExtractEmailsEmpty(t *testing.T) {
	assert.Empty(t, ExtractEmails("no emails here"))
	assert.Empty(t, ExtractEmails(""))
}

func TestExtractPhones(t *testing.T) {
	text := "Office: (813) 555-0142 or 1-813-555-0142, fax 813.555.0199"
	got := ExtractPhones(text)
	require.Len(t, got, 2)
	assert.Equal(t, "(813) 555-0142", got[0])
	assert.Equal(t, "(813) 555-0199", got[1])
}

func TestExtractContactNames(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "title before name",
			text: "Property Manager: Jane Smith handles all inquiries.",
			want: []string{"Jane Smith"},
		},
		{
			name: "name before title",
			text: "Reach out to Bob Jones, President of the board.",
			want: []string{"Bob Jones"},
		},
		{
			name: "managed by phrasing",
			text: "The community is managed by Carol White since 2019.",
			want: []string{"Carol White"},
		},
		{
			name: "blacklisted words rejected",
			text: "President: Our Community is proud...",
			want: nil,
		},
		{
			name: "nothing",
			text: "A lovely gated community in Tampa.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractContactNames(tt.text))
		})
	}
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Property Manager", ExtractTitle("Jane Smith, Property Manager"))
	assert.Equal(t, "Board President", ExtractTitle("our board president welcomes you"))
	assert.Equal(t, "Treasurer", ExtractTitle("CONTACT THE TREASURER"))
	assert.Equal(t, "", ExtractTitle("no titles here"))
}
