package whatsapp

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateKeepsShortTitles(t *testing.T) {
	assert.Equal(t, "Dr. Rao", truncate("Dr. Rao", maxRowTitle))
}

func TestTruncateCutsLongTitles(t *testing.T) {
	long := "General Medicine and Preventive Care"
	got := truncate(long, maxRowTitle)
	assert.Equal(t, long[:maxRowTitle], got)
	assert.Len(t, []rune(got), maxRowTitle)
}

func TestTruncateNeverSplitsARune(t *testing.T) {
	name := "डॉ. सुधा कृष्णमूर्ति, हृदय रोग विशेषज्ञ"
	got := truncate(name, maxRowTitle)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, string([]rune(name)[:maxRowTitle]), got)
}
