package dataset

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(labeled bool) string {
	cols := make([]string, 0, Pixels+1)
	if labeled {
		cols = append(cols, "label")
	}
	for i := 0; i < Pixels; i++ {
		cols = append(cols, fmt.Sprintf("pixel%d", i))
	}
	return strings.Join(cols, ",")
}

// trainRow builds a CSV row whose pixels all hold the given intensity.
func trainRow(label, intensity int) string {
	cols := make([]string, 0, Pixels+1)
	cols = append(cols, fmt.Sprintf("%d", label))
	for i := 0; i < Pixels; i++ {
		cols = append(cols, fmt.Sprintf("%d", intensity))
	}
	return strings.Join(cols, ",")
}

func testRow(intensity int) string {
	cols := make([]string, 0, Pixels)
	for i := 0; i < Pixels; i++ {
		cols = append(cols, fmt.Sprintf("%d", intensity))
	}
	return strings.Join(cols, ",")
}

func trainCSV(rows ...string) string {
	return header(true) + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestLoadTrainNormalizes(t *testing.T) {
	csv := trainCSV(trainRow(3, 255), trainRow(7, 0))
	set, err := Load(strings.NewReader(csv), true)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	assert.Equal(t, []int{3, 7}, set.Labels)
	assert.Equal(t, []int{1, ImageSize, ImageSize}, set.Images[0].Shape)
	for _, img := range set.Images {
		for _, v := range img.Data {
			assert.True(t, v >= 0 && v <= 1, "pixel %v outside [0,1]", v)
		}
	}
	assert.Equal(t, 1.0, set.Images[0].Data[0])
	assert.Equal(t, 0.0, set.Images[1].Data[0])
}

func TestLoadTestUnlabeled(t *testing.T) {
	csv := header(false) + "\n" + testRow(128) + "\n"
	set, err := Load(strings.NewReader(csv), false)
	require.NoError(t, err)
	assert.Nil(t, set.Labels)
	assert.Equal(t, 1, set.Len())
	assert.InDelta(t, 128.0/255.0, set.Images[0].Data[42], 1e-12)
}

func TestLoadRejectsBadColumnCount(t *testing.T) {
	short := trainCSV("5,1,2,3")
	_, err := Load(strings.NewReader(short), true)
	assert.ErrorIs(t, err, ErrInputFormat)
}

func TestLoadRejectsBadHeader(t *testing.T) {
	_, err := Load(strings.NewReader("a,b,c\n"), true)
	assert.ErrorIs(t, err, ErrInputFormat)
}

func TestLoadRejectsMissingHeader(t *testing.T) {
	_, err := Load(strings.NewReader(""), true)
	assert.ErrorIs(t, err, ErrInputFormat)
}

func TestLoadRejectsNonNumericPixel(t *testing.T) {
	row := trainRow(1, 0)
	row = strings.Replace(row, "1,0,0", "1,x,0", 1)
	_, err := Load(strings.NewReader(trainCSV(row)), true)
	assert.ErrorIs(t, err, ErrInputFormat)
}

func TestLoadRejectsBadLabel(t *testing.T) {
	_, err := Load(strings.NewReader(trainCSV(trainRow(12, 0))), true)
	assert.ErrorIs(t, err, ErrInputFormat)
}

func TestLoadEmptyDataset(t *testing.T) {
	_, err := Load(strings.NewReader(header(true)+"\n"), true)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func buildSet(n int) *Set {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = trainRow(i%NumClasses, i%256)
	}
	set, err := Load(strings.NewReader(trainCSV(rows...)), true)
	if err != nil {
		panic(err)
	}
	return set
}

func TestSplitDeterministicDisjointExhaustive(t *testing.T) {
	set := buildSet(10)

	train1, val1, err := Split(set, 0.2, 42)
	require.NoError(t, err)
	train2, val2, err := Split(set, 0.2, 42)
	require.NoError(t, err)

	// Same seed, same partition.
	assert.Empty(t, cmp.Diff(train1.Labels, train2.Labels))
	assert.Empty(t, cmp.Diff(val1.Labels, val2.Labels))

	// 80/20: train gets ceil(0.8*N).
	assert.Equal(t, 8, train1.Len())
	assert.Equal(t, 2, val1.Len())

	// Disjoint and exhaustive over the original images.
	seen := map[*float64]bool{}
	for _, s := range []*Set{train1, val1} {
		for _, img := range s.Images {
			key := &img.Data[0]
			assert.False(t, seen[key], "example appears in both partitions")
			seen[key] = true
		}
	}
	assert.Len(t, seen, set.Len())
}

func TestSplitRejectsBadFraction(t *testing.T) {
	set := buildSet(4)
	_, _, err := Split(set, 0, 42)
	assert.Error(t, err)
	_, _, err = Split(set, 1, 42)
	assert.Error(t, err)
}

func TestSplitEmpty(t *testing.T) {
	_, _, err := Split(&Set{}, 0.2, 42)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestBatchShapeAndTruncation(t *testing.T) {
	set := buildSet(5)

	x, labels, err := set.Batch(0, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, ImageSize, ImageSize}, x.Shape)
	assert.Len(t, labels, 3)

	// Final partial batch truncates.
	x, labels, err = set.Batch(3, 64)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, ImageSize, ImageSize}, x.Shape)
	assert.Len(t, labels, 2)

	_, _, err = set.Batch(5, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestOneHot(t *testing.T) {
	set := buildSet(3)
	oh := set.OneHot(1)
	assert.Equal(t, 1.0, oh.Data[set.Labels[1]])
	sum := 0.0
	for _, v := range oh.Data {
		sum += v
	}
	assert.Equal(t, 1.0, sum)
}
