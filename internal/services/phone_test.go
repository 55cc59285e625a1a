package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormPhone(t *testing.T) {
	valid := []string{
		"89991234567",
		"+79991234567",
		"79991234567",
		"8 (999) 123-45-67",
		"+7 999 123 45 67",
	}
	for _, in := range valid {
		got, ok := NormPhone(in)
		assert.True(t, ok, in)
		assert.Equal(t, "79991234567", got, in)
	}

	invalid := []string{
		"",
		"9991234567",     // ten digits
		"899912345678",   // twelve digits
		"+19991234567",   // foreign country code
		"69991234567",    // wrong trunk prefix
		"8999123456a",    // letters
		"+7999123456",    // short after +7
		"8-999-123-45-6", // short with separators
	}
	for _, in := range invalid {
		_, ok := NormPhone(in)
		assert.False(t, ok, in)
	}
}

func TestPhoneSuffix(t *testing.T) {
	assert.Equal(t, "4567", PhoneSuffix("79991234567"))
	assert.Equal(t, "12", PhoneSuffix("12"))
}
