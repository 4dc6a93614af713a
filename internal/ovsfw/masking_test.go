// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ovsfw

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPortRuleMaskingSetEquality(t *testing.T) {
	// (5,12): the reference implementation emits singletons before larger
	// blocks here; only set contents and length are load-bearing.
	got := PortBitmaskCompiler{}.PortRuleMasking(5, 12)
	want := []string{"0x0005", "0x000c", "0x0006/0xfffe", "0x0008/0xfffc"}
	require.ElementsMatch(t, want, got)
}

func TestPortRuleMaskingOrderedVectors(t *testing.T) {
	cases := []struct {
		name     string
		min, max uint16
		want     []string
	}{
		{
			name: "20-130",
			min:  20, max: 130,
			want: []string{"0x0014/0xfffe", "0x0016/0xfffe", "0x0018/0xfff8", "0x0020/0xffe0", "0x0040/0xffc0", "0x0080/0xfffe", "0x0082"},
		},
		{
			name: "4501-33057",
			min:  4501, max: 33057,
			want: []string{
				"0x1195", "0x1196/0xfffe", "0x1198/0xfff8", "0x11a0/0xffe0", "0x11c0/0xffc0",
				"0x1200/0xfe00", "0x1400/0xfc00", "0x1800/0xf800", "0x2000/0xe000", "0x4000/0xc000",
				"0x8021/0xff00", "0x8101/0xffe0", "0x8120/0xfffe",
			},
		},
		{
			name: "10-100",
			min:  10, max: 100,
			want: []string{"0x000a/0xfffe", "0x000c/0xfffc", "0x0010/0xfff0", "0x0020/0xffe0", "0x0044/0xffe0", "0x0060/0xfffc", "0x0064"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := PortBitmaskCompiler{}.PortRuleMasking(c.min, c.max)
			require.Equal(t, c.want, got)
		})
	}
}

func TestPortRuleMaskingCoverage(t *testing.T) {
	// Property: the emitted blocks partition exactly [min,max], with no
	// gaps and no overlaps, for a sample of ranges including edges.
	ranges := [][2]uint16{
		{0, 0xffff},
		{0, 0},
		{0xffff, 0xffff},
		{5, 12},
		{20, 130},
		{4501, 33057},
		{1, 1},
		{100, 100},
	}
	for _, r := range ranges {
		min, max := r[0], r[1]
		blocks := PortBitmaskCompiler{}.PortRuleMasking(min, max)
		covered := map[uint32]bool{}
		for _, b := range blocks {
			base, size := parseBlock(t, b)
			for p := base; p < base+size; p++ {
				require.False(t, covered[p], "block %s overlaps a previous block for range [%d,%d]", b, min, max)
				covered[p] = true
			}
		}
		require.Len(t, covered, int(uint32(max)-uint32(min)+1), "range [%d,%d]", min, max)
		for p := uint32(min); p <= uint32(max); p++ {
			require.True(t, covered[p], "port %d missing from coverage of [%d,%d]", p, min, max)
		}
	}
}

// parseBlock recovers the aligned block a value/mask string denotes.
// The printed value may carry don't-care low bits borrowed from the
// range's upper bound rather than zeroed (the "dirty value" case), so
// the true base is v masked down to the fixed bits, not v itself.
func parseBlock(t *testing.T, s string) (base, size uint32) {
	t.Helper()
	hexVal, hexMask, hasMask := strings.Cut(s, "/")
	v, err := strconv.ParseUint(strings.TrimPrefix(hexVal, "0x"), 16, 32)
	require.NoError(t, err)
	if !hasMask {
		return uint32(v), 1
	}
	m, err := strconv.ParseUint(strings.TrimPrefix(hexMask, "0x"), 16, 32)
	require.NoError(t, err)
	wildcard := (^uint32(m)) & 0xffff
	return uint32(v) &^ wildcard, wildcard + 1
}
