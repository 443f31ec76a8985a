// Command fbxdump prints a field's descriptor and, optionally, a slice
// of its data at a given savepoint. It is a thin cobra wrapper over
// pkg/serialbox, grounded on tools/dump.cpp in the reference
// implementation.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gridfield/serialbox/internal/cliutil"
	"github.com/gridfield/serialbox/pkg/options"
	"github.com/gridfield/serialbox/pkg/serialbox"
)

func main() {
	var (
		quiet  bool
		iSpec  string
		jSpec  string
		kSpec  string
		lSpec  string
	)

	cmd := &cobra.Command{
		Use:   "fbxdump [flags] <json-or-dat-file> <savepoint-id>",
		Short: "Print a field descriptor and data slice from a serialbox store",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runDump(args[0], args[1], quiet, iSpec, jSpec, kSpec, lSpec)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print the field descriptor only")
	cmd.Flags().StringVarP(&iSpec, "i", "i", ":", "bound for the i dimension, \"a\" or \"a:b\"")
	cmd.Flags().StringVarP(&jSpec, "j", "j", ":", "bound for the j dimension, \"a\" or \"a:b\"")
	cmd.Flags().StringVarP(&kSpec, "k", "k", ":", "bound for the k dimension, \"a\" or \"a:b\"")
	cmd.Flags().StringVarP(&lSpec, "l", "l", ":", "bound for the l dimension, \"a\" or \"a:b\"")

	if err := cmd.Execute(); err != nil {
		os.Exit(2)
	}
}

func runDump(path, savepointIDStr string, quiet bool, iSpec, jSpec, kSpec, lSpec string) error {
	directory, prefix, field, ok := cliutil.SplitFilePath(path)
	if !ok {
		return exitErr("invalid file: %s", path)
	}

	savepointID, err := strconv.Atoi(savepointIDStr)
	if err != nil {
		return exitErr("invalid savepoint id: %s", savepointIDStr)
	}

	fmt.Printf("Directory: %s\n", directory)
	fmt.Printf("Prefix: %s\n", prefix)
	fmt.Printf("SavepointId: %d\n", savepointID)

	inst, err := serialbox.Open(context.Background(), "fbxdump",
		options.WithDirectory(directory), options.WithPrefix(prefix), options.WithMode(serialbox.Read))
	if err != nil {
		return exitErr("%v", err)
	}
	defer inst.Close()

	if field == "" {
		for _, name := range inst.Fields() {
			fmt.Println(name)
		}
		return nil
	}

	desc, err := inst.FindField(field)
	if err != nil {
		return exitErr("%v", err)
	}

	iBounds := cliutil.ParseBounds(iSpec).Clamp(desc.Sizes.I)
	jBounds := cliutil.ParseBounds(jSpec).Clamp(desc.Sizes.J)
	kBounds := cliutil.ParseBounds(kSpec).Clamp(desc.Sizes.K)
	lBounds := cliutil.ParseBounds(lSpec).Clamp(desc.Sizes.L)

	fmt.Printf("Field: %s\n", desc.Name)
	fmt.Printf("Type: %s\n", desc.Type)
	fmt.Printf("Rank: %d\n", desc.Rank)
	fmt.Printf("Bytes per Element: %d\n", desc.BytesPerElement)
	fmt.Printf("iSize: %d (%d, %d)\n", desc.Sizes.I, iBounds.Lower, iBounds.Upper)
	fmt.Printf("jSize: %d (%d, %d)\n", desc.Sizes.J, jBounds.Lower, jBounds.Upper)
	fmt.Printf("kSize: %d (%d, %d)\n", desc.Sizes.K, kBounds.Lower, kBounds.Upper)
	fmt.Printf("lSize: %d (%d, %d)\n", desc.Sizes.L, lBounds.Lower, lBounds.Upper)

	if quiet {
		return nil
	}
	fmt.Println()

	savepoints := inst.Savepoints()
	if savepointID < 0 || savepointID >= len(savepoints) {
		return exitErr("savepoint id out of range: %d", savepointID)
	}
	sp := savepoints[savepointID]
	fmt.Printf("Savepoint: %s\n", sp.ToString())

	strides := rowMajorStrides(desc)
	buf := make([]byte, desc.DataSize())
	if err := inst.ReadField(desc.Name, sp, buf, strides, false); err != nil {
		return exitErr("%v", err)
	}

	printSlice(desc, buf, iBounds, jBounds, kBounds, lBounds)
	return nil
}

// rowMajorStrides matches readData's layout in the reference tools:
// i slowest, l fastest, strides in bytes.
func rowMajorStrides(desc *serialbox.Descriptor) serialbox.Strides {
	bpe := desc.BytesPerElement
	lStride := bpe
	kStride := desc.Sizes.L * lStride
	jStride := desc.Sizes.K * kStride
	iStride := desc.Sizes.J * jStride
	return serialbox.Strides{I: iStride, J: jStride, K: kStride, L: lStride}
}

func printSlice(desc *serialbox.Descriptor, buf []byte, iB, jB, kB, lB cliutil.Bounds) {
	jSize, kSize, lSize := desc.Sizes.J, desc.Sizes.K, desc.Sizes.L
	for i := iB.Lower; i <= iB.Upper; i++ {
		for j := jB.Lower; j <= jB.Upper; j++ {
			if kSize > 1 {
				fmt.Print("[ ")
			}
			for k := kB.Lower; k <= kB.Upper; k++ {
				if lSize > 1 {
					fmt.Print("( ")
				}
				for l := lB.Lower; l <= lB.Upper; l++ {
					index := ((i*jSize+j)*kSize + k) * lSize + l
					fmt.Print(formatElement(desc, buf, index))
					if l < lB.Upper {
						fmt.Print(", ")
					}
				}
				if lSize > 1 {
					fmt.Print(" )")
				}
				if k < kB.Upper {
					fmt.Print(", ")
				}
			}
			if kSize > 1 {
				fmt.Print(" ]")
			}
			if j < jB.Upper {
				fmt.Print(", ")
			}
		}
		fmt.Println()
	}
}

func formatElement(desc *serialbox.Descriptor, buf []byte, index int) string {
	off := index * desc.BytesPerElement
	switch desc.Type {
	case serialbox.Int:
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(buf[off:]))), 10)
	case serialbox.Float:
		bits := binary.LittleEndian.Uint32(buf[off:])
		return strconv.FormatFloat(float64(math.Float32frombits(bits)), 'g', -1, 32)
	case serialbox.Double:
		bits := binary.LittleEndian.Uint64(buf[off:])
		return strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64)
	default:
		return "?"
	}
}

func exitErr(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}
