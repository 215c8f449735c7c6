package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"newsdb/pkg/models"
	"newsdb/pkg/threading"
)

var (
	threadNoFold bool
	threadJSON   bool
)

func init() {
	rootCmd.AddCommand(threadCmd)
	threadCmd.Flags().BoolVar(&threadNoFold, "no-fold", false, "skip subject folding of the root set")
	threadCmd.Flags().BoolVar(&threadJSON, "json", false, "emit the forest as JSON instead of a tree")
}

var threadCmd = &cobra.Command{
	Use:   "thread <file>",
	Short: "Thread a local file of overview rows and render the tree",
	Long: `Reads overview rows as JSON lines (one article object per line, the
same shape the cache stores) and runs the threading pass locally. Useful
for debugging odd trees without a server round-trip.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arts, err := readOverviewFile(args[0])
		if err != nil {
			return err
		}
		if len(arts) == 0 {
			return fmt.Errorf("no articles in %s", args[0])
		}

		th := threading.NewThreader()
		th.NoSubjectFold = threadNoFold
		seed := make([]threading.Threadable, len(arts))
		for i, a := range arts {
			seed[i] = a
		}
		root, _ := th.Thread(seed).(*models.Article)
		forest := models.BuildForest(root)

		if threadJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(forest)
		}
		for _, n := range forest {
			renderNode(n, 0)
		}
		fmt.Printf("\n%d articles, %d threads\n", len(arts), len(forest))
		return nil
	},
}

func readOverviewFile(path string) ([]*models.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var arts []*models.Article
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		var a models.Article
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if a.MessageID == "" {
			return nil, fmt.Errorf("%s:%d: missing message_id", path, line)
		}
		aa := a
		arts = append(arts, &aa)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return arts, nil
}

func renderNode(n *models.ThreadNode, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.Dummy {
		fmt.Printf("%s* %s [missing]\n", indent, n.Subject)
	} else {
		line := fmt.Sprintf("%s* %s", indent, n.Subject)
		if n.From != "" {
			line += " (" + n.From + ")"
		}
		line += " " + n.MessageID
		fmt.Println(line)
	}
	for _, kid := range n.Children {
		renderNode(kid, depth+1)
	}
}
