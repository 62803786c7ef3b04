package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello", Sanitize(`<script>alert(1)</script>hello`))
	assert.Equal(t, "<b>bold</b>", Sanitize("  <b>bold</b> "))
	assert.NotContains(t, Sanitize(`<a href="/p" onclick="steal()">x</a>`), "onclick")
}

func TestSanitizeText(t *testing.T) {
	cases := [][2]string{
		{"Tom & Jerry", "Tom & Jerry"},
		{"Ann's post", "Ann's post"},
		{` "quoted" `, `"quoted"`},
		{"<b>Hi</b> there", "Hi there"},
		{"<script>alert(1)</script>ok", "ok"},
		{"<img src=x onerror=steal()>", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc[1], SanitizeText(tc[0]), tc[0])
	}
}
