// Command memsdemo drives a MeMS allocator through the same scenario as
// original_source/example.c: allocate ten small arrays, read and write
// through a translated handle, print stats, free and re-allocate one
// segment, then tear everything down. It is the external demonstration
// program spec.md §1 scopes out of the allocator's core.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	units "github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mrkrishnaaggarwal/mems"
	"github.com/mrkrishnaaggarwal/mems/internal/page"
)

const intsPerArray = 250

func main() {
	var (
		pageSize    int
		base        uint64
		human       bool
		profilePath string
	)

	root := &cobra.Command{
		Use:   "memsdemo",
		Short: "Runs the classic ten-array MeMS allocation scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(pageSize, mems.VAddr(base), human, profilePath)
		},
	}
	root.Flags().IntVar(&pageSize, "page-size", page.Size, "page size in bytes")
	root.Flags().Uint64Var(&base, "base", 1000, "first virtual address handed out")
	root.Flags().BoolVar(&human, "human", false, "render the demo's own narration with human-friendly sizes and grouped numbers")
	root.Flags().StringVar(&profilePath, "profile", "", "write a pprof dump of the final allocator state to this file")

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("memsdemo: failed")
	}
}

func runDemo(pageSize int, base mems.VAddr, human bool, profilePath string) error {
	printer := message.NewPrinter(language.English)

	fmtSize := func(n int) string {
		if human {
			return units.HumanSize(float64(n))
		}
		return fmt.Sprintf("%d bytes", n)
	}
	fmtAddr := func(v mems.VAddr) string {
		if human {
			return printer.Sprintf("%v", number.Decimal(uint64(v)))
		}
		return fmt.Sprintf("%d", uint64(v))
	}

	a := mems.New(mems.Config{PageSize: pageSize, Base: base}, page.OSProvider{})

	fmt.Println("------- Allocating virtual addresses [Malloc] -------")
	var ptrs [10]mems.VAddr
	arrayBytes := intsPerArray * 4
	for i := range ptrs {
		ptrs[i] = a.Malloc(arrayBytes)
		if ptrs[i] != mems.NullVAddr {
			fmt.Printf("virtual address for ptr[%d]: %s (%s)\n", i, fmtAddr(ptrs[i]), fmtSize(arrayBytes))
		}
	}

	fmt.Println("\n------ Accessing and writing to a virtual address [Translate] -----")
	arr0, ok := a.Translate(ptrs[0])
	if !ok || len(arr0) < 8 {
		return fmt.Errorf("memsdemo: translate of ptr[0] failed")
	}
	// Write 200 into ptr[0][1], the second int in the first array.
	binary.LittleEndian.PutUint32(arr0[4:8], 200)
	fmt.Printf("virtual base address: %s\tphysical base address: %p\n", fmtAddr(ptrs[0]), &arr0[0])
	fmt.Printf("value at index [1]: %d\n", binary.LittleEndian.Uint32(arr0[4:8]))

	fmt.Println("\n--------- Printing memory stats [PrintStats] --------")
	a.PrintStats(os.Stdout)

	fmt.Println("\n--------- Freeing and re-allocating a segment [Free] --------")
	fmt.Println("freeing ptr[3]...")
	a.Free(ptrs[3])
	a.PrintStats(os.Stdout)

	fmt.Println("\nre-allocating space for ptr[3]...")
	ptrs[3] = a.Malloc(arrayBytes)
	a.PrintStats(os.Stdout)

	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("memsdemo: opening profile output: %w", err)
		}
		defer f.Close()
		if err := a.DumpProfile(f); err != nil {
			return fmt.Errorf("memsdemo: writing profile: %w", err)
		}
		fmt.Printf("wrote pprof dump to %s\n", profilePath)
	}

	fmt.Println("\n--------- Unmapping all memory [Finish] --------")
	a.Finish()
	return nil
}
