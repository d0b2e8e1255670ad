package utils

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
	os.Exit(m.Run())
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`reviews`", QuoteIdentifier("reviews"))
	assert.Equal(t, "`we``ird`", QuoteIdentifier("we`ird"))
	assert.Equal(t, "`reviewid`, `title`", QuoteIdentifiers([]string{"reviewid", "title"}))
	assert.Empty(t, QuoteIdentifiers(nil))
	assert.Equal(t, `"best_new_music"`, QuoteSQLiteIdentifier("best_new_music"))
	assert.Equal(t, `"a""b"`, QuoteSQLiteIdentifier(`a"b`))
}

func TestErrInErr(t *testing.T) {
	assert.NotPanics(t, func() {
		ErrInErr(nil)
		ErrInErr(errors.New("close failed"))
	})
}
