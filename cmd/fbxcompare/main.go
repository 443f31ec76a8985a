// Command fbxcompare element-wise compares the fields recorded at every
// "-out"-suffixed savepoint across two serialbox stores, within a
// tolerance. It is a thin cobra wrapper over pkg/serialbox, grounded on
// tools/compare.cpp in the reference implementation.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridfield/serialbox/internal/cliutil"
	"github.com/gridfield/serialbox/pkg/options"
	"github.com/gridfield/serialbox/pkg/serialbox"
)

const defaultTolerance = 1e-12

func main() {
	var (
		quiet      bool
		tolerance  float64
		iSpec      string
		jSpec      string
		kSpec      string
		lSpec      string
	)

	cmd := &cobra.Command{
		Use:   "fbxcompare [flags] <file1> <file2>",
		Short: "Element-wise compare two serialbox stores within a tolerance",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCompare(args[0], args[1], quiet, tolerance, iSpec, jSpec, kSpec, lSpec)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "compare descriptors only")
	cmd.Flags().Float64VarP(&tolerance, "tolerance", "t", defaultTolerance, "comparison tolerance")
	cmd.Flags().StringVarP(&iSpec, "i", "i", ":", "bound for the i dimension, \"a\" or \"a:b\"")
	cmd.Flags().StringVarP(&jSpec, "j", "j", ":", "bound for the j dimension, \"a\" or \"a:b\"")
	cmd.Flags().StringVarP(&kSpec, "k", "k", ":", "bound for the k dimension, \"a\" or \"a:b\"")
	cmd.Flags().StringVarP(&lSpec, "l", "l", ":", "bound for the l dimension, \"a\" or \"a:b\"")

	if err := cmd.Execute(); err != nil {
		os.Exit(2)
	}
}

func runCompare(path1, path2 string, quiet bool, tolerance float64, iSpec, jSpec, kSpec, lSpec string) error {
	dir1, prefix1, field1, ok1 := cliutil.SplitFilePath(path1)
	dir2, prefix2, field2, ok2 := cliutil.SplitFilePath(path2)
	if !ok1 {
		return fmt.Errorf("invalid file 1: %s", path1)
	}
	if !ok2 {
		return fmt.Errorf("invalid file 2: %s", path2)
	}
	if field1 != field2 {
		return fmt.Errorf("inconsistent fields: %q != %q", field1, field2)
	}

	fmt.Println(prefix1)
	fmt.Println(prefix2)

	ctx := context.Background()
	inst1, err := serialbox.Open(ctx, "fbxcompare", options.WithDirectory(dir1), options.WithPrefix(prefix1), options.WithMode(serialbox.Read))
	if err != nil {
		return err
	}
	defer inst1.Close()

	inst2, err := serialbox.Open(ctx, "fbxcompare", options.WithDirectory(dir2), options.WithPrefix(prefix2), options.WithMode(serialbox.Read))
	if err != nil {
		return err
	}
	defer inst2.Close()

	var specificFields []string
	if field1 != "" {
		specificFields = []string{field1}
	}

	mismatch := false
	for _, sp := range inst1.Savepoints() {
		if !strings.HasSuffix(sp.Name, "-out") {
			continue
		}

		fmt.Println("---------------------------------")
		fmt.Println(sp.ToString())

		fields := intersectFields(inst1.FieldsAt(sp), specificFields)
		for _, field := range fields {
			fmt.Printf("\t%s\n", field)

			desc1, err := inst1.FindField(field)
			if err != nil {
				return err
			}
			desc2, err := inst2.FindField(field)
			if err != nil {
				return err
			}

			if !compareDescriptors(desc1, desc2) {
				return fmt.Errorf("descriptors differ for field %s", field)
			}
			if quiet {
				continue
			}

			iBounds := cliutil.ParseBounds(iSpec).Clamp(desc1.Sizes.I)
			jBounds := cliutil.ParseBounds(jSpec).Clamp(desc1.Sizes.J)
			kBounds := cliutil.ParseBounds(kSpec).Clamp(desc1.Sizes.K)
			lBounds := cliutil.ParseBounds(lSpec).Clamp(desc1.Sizes.L)

			buf1 := make([]byte, desc1.DataSize())
			if err := inst1.ReadField(field, sp, buf1, rowMajorStrides(desc1), false); err != nil {
				return err
			}
			buf2 := make([]byte, desc2.DataSize())
			if err := inst2.ReadField(field, sp, buf2, rowMajorStrides(desc2), false); err != nil {
				return err
			}

			equal, report := compareData(desc1, buf1, buf2, iBounds, jBounds, kBounds, lBounds, tolerance)
			if !equal {
				mismatch = true
				fmt.Print(report)
			}
		}
	}

	if mismatch {
		return fmt.Errorf("comparison found mismatches")
	}
	return nil
}

func intersectFields(at []string, specific []string) []string {
	if len(specific) == 0 {
		return at
	}
	want := make(map[string]bool, len(specific))
	for _, f := range specific {
		want[f] = true
	}
	var out []string
	for _, f := range at {
		if want[f] {
			out = append(out, f)
		}
	}
	return out
}

func compareDescriptors(a, b *serialbox.Descriptor) bool {
	equal := true
	if a.Type != b.Type {
		fmt.Printf("Type: %s != %s\n", a.Type, b.Type)
		equal = false
	}
	if a.Rank != b.Rank {
		fmt.Printf("Rank: %d != %d\n", a.Rank, b.Rank)
		equal = false
	}
	if a.BytesPerElement != b.BytesPerElement {
		fmt.Printf("Bytes per Element: %d != %d\n", a.BytesPerElement, b.BytesPerElement)
		equal = false
	}
	if a.Sizes != b.Sizes {
		fmt.Printf("Sizes: %+v != %+v\n", a.Sizes, b.Sizes)
		equal = false
	}
	return equal
}

func rowMajorStrides(desc *serialbox.Descriptor) serialbox.Strides {
	bpe := desc.BytesPerElement
	lStride := bpe
	kStride := desc.Sizes.L * lStride
	jStride := desc.Sizes.K * kStride
	iStride := desc.Sizes.J * jStride
	return serialbox.Strides{I: iStride, J: jStride, K: kStride, L: lStride}
}

// compareData walks the requested bounds comparing buf1 against buf2 as
// reference, using an absolute tolerance when |ref| <= 1 and a relative
// one otherwise, and treating exactly-one-NaN as a mismatch, per
// compareData/compareInfo in the reference tools.
func compareData(desc *serialbox.Descriptor, buf1, buf2 []byte, iB, jB, kB, lB cliutil.Bounds, tolerance float64) (bool, string) {
	jSize, kSize, lSize := desc.Sizes.J, desc.Sizes.K, desc.Sizes.L
	nValues := 0
	nErrors := 0
	maxAbsError := 0.0
	maxRelError := 0.0

	for i := iB.Lower; i <= iB.Upper; i++ {
		for j := jB.Lower; j <= jB.Upper; j++ {
			for k := kB.Lower; k <= kB.Upper; k++ {
				for l := lB.Lower; l <= lB.Upper; l++ {
					index := ((i*jSize+j)*kSize + k) * lSize + l
					val := readElement(desc, buf1, index)
					ref := readElement(desc, buf2, index)
					nValues++

					var errv float64
					if math.Abs(ref) > 1 {
						errv = math.Abs((ref - val) / ref)
					} else {
						errv = math.Abs(ref - val)
					}

					failed := errv > tolerance || (math.IsNaN(val) != math.IsNaN(ref))
					if failed {
						nErrors++
						maxAbsError = math.Max(maxAbsError, math.Abs(val-ref))
						maxRelError = math.Max(maxRelError, math.Abs((val-ref)/ref))
					}
				}
			}
		}
	}

	if nErrors == 0 {
		return true, ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, " | Number of values: %6d\n", nValues)
	fmt.Fprintf(&b, " | Number of errors: %6d\n", nErrors)
	fmt.Fprintf(&b, " | Percentage of errors: %.2f %%\n", 100*float64(nErrors)/float64(nValues))
	fmt.Fprintf(&b, " | Maximum absolute error: %.10e\n", maxAbsError)
	fmt.Fprintf(&b, " | Maximum relative error: %.10e\n", maxRelError)
	return false, b.String()
}

func readElement(desc *serialbox.Descriptor, buf []byte, index int) float64 {
	off := index * desc.BytesPerElement
	switch desc.Type {
	case serialbox.Int:
		return float64(int32(binary.LittleEndian.Uint32(buf[off:])))
	case serialbox.Float:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])))
	case serialbox.Double:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
	default:
		return 0
	}
}
