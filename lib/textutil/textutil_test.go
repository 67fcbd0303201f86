package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigits(t *testing.T) {
	require.Equal(t, "26", Digits("TV (26 eps)"))
	require.Equal(t, "1234567", Digits("1234567 members"))
	require.Equal(t, Sentinel, Digits("Movie (? eps)"))
}

func TestNormalizeSpace(t *testing.T) {
	require.Equal(
		t,
		"a long synopsis line",
		NormalizeSpace("  a long\r\n\tsynopsis  line \n"),
	)
}

func TestSplitList(t *testing.T) {
	require.Equal(
		t,
		[]string{"Aniplex", "Square Enix", "Mainichi Broadcasting System"},
		SplitList("Aniplex, Square Enix,  Mainichi Broadcasting System"),
	)
}
