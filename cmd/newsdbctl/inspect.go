package main

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [database-path]",
	Short: "Inspect cache database keys without a running server",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dbPath := args[0]
		inspectDatabase(dbPath)
	},
}

func inspectDatabase(dbPath string) {
	db, err := pebble.Open(dbPath, &pebble.Options{ReadOnly: true})
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	iter, err := db.NewIter(nil)
	if err != nil {
		log.Fatal(err)
	}
	defer iter.Close()

	count := 0
	metaKeys := 0
	articleKeys := 0
	indexKeys := 0
	otherKeys := 0
	var valueBytes int64
	perGroup := map[string]int{}

	fmt.Println("🔍 Inspecting cache keys:")
	fmt.Println("=====================================")

	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		count++
		valueBytes += int64(len(iter.Value()))

		switch {
		case strings.HasPrefix(key, "group:") && strings.HasSuffix(key, ":meta"):
			metaKeys++
			if metaKeys <= 5 {
				fmt.Printf("Group key %d: %s\n", metaKeys, key)
			}
		case strings.HasPrefix(key, "group:") && strings.Contains(key, ":art:"):
			articleKeys++
			body := strings.TrimPrefix(key, "group:")
			if i := strings.Index(body, ":art:"); i > 0 {
				perGroup[body[:i]]++
			}
			if articleKeys <= 5 {
				fmt.Printf("Article key %d: %s\n", articleKeys, key)
			}
		case strings.HasPrefix(key, "idx:msgid:"):
			indexKeys++
			if indexKeys <= 5 {
				fmt.Printf("Index key %d: %s\n", indexKeys, key)
			}
		default:
			otherKeys++
			if otherKeys <= 5 {
				fmt.Printf("Other key %d: %s\n", otherKeys, key)
			}
		}
	}

	fmt.Printf("\n📊 Key Summary:\n")
	fmt.Printf("  Total keys: %d\n", count)
	fmt.Printf("  Group meta keys: %d\n", metaKeys)
	fmt.Printf("  Article keys: %d\n", articleKeys)
	fmt.Printf("  Message-id index keys: %d\n", indexKeys)
	fmt.Printf("  Other keys: %d\n", otherKeys)
	fmt.Printf("  Value bytes: %d\n", valueBytes)

	if len(perGroup) > 0 {
		names := make([]string, 0, len(perGroup))
		for n := range perGroup {
			names = append(names, n)
		}
		sort.Strings(names)
		fmt.Printf("\n  Articles per group:\n")
		for _, n := range names {
			fmt.Printf("    %-40s %d\n", n, perGroup[n])
		}
	}
}
