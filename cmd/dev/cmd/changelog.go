package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/spf13/cobra"
)

func ChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Generate CHANGELOG.md from git history",
		Long: `Generate CHANGELOG.md from conventional commits, one section per tag.

Commits should follow the format:
  <type>[optional scope][!]: <description>

Listed types: feat, fix, perf, refactor, docs. A trailing ! marks a breaking
change. Commits newer than the latest tag go under the --next heading.

Examples:
  dev changelog
  dev changelog --next v1.2.0
  dev changelog --since v1.0.0 --output -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("could not get output flag: %w", err)
			}
			next, err := cmd.Flags().GetString("next")
			if err != nil {
				return fmt.Errorf("could not get next flag: %w", err)
			}
			since, err := cmd.Flags().GetString("since")
			if err != nil {
				return fmt.Errorf("could not get since flag: %w", err)
			}

			releases, err := collectReleases(".", next, since)
			if err != nil {
				return err
			}
			doc := renderChangelog(releases)
			if output == "-" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), doc)
				return err
			}
			if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
				return fmt.Errorf("could not write changelog: %w", err)
			}
			slog.Info("changelog generated", "output", output, "releases", len(releases))
			return nil
		},
	}

	cmd.Flags().String("next", "Unreleased", "heading for commits newer than the latest tag")
	cmd.Flags().String("output", "CHANGELOG.md", "output file path, - for stdout")
	cmd.Flags().String("since", "", "stop at this tag")

	return cmd
}

var commitTypes = []struct {
	kind    string
	heading string
}{
	{"feat", "Features"},
	{"fix", "Bug Fixes"},
	{"perf", "Performance"},
	{"refactor", "Refactoring"},
	{"docs", "Documentation"},
}

var subjectPattern = regexp.MustCompile(`^(\w+)(?:\(([^)]*)\))?(!)?:\s*(.+)$`)

type change struct {
	kind     string
	scope    string
	summary  string
	breaking bool
	hash     string
}

type release struct {
	name    string
	date    time.Time
	changes []change
}

// parseSubject reads the first line of a conventional commit message. ok is
// false for messages that do not follow the format.
func parseSubject(message string) (change, bool) {
	subject, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	m := subjectPattern.FindStringSubmatch(strings.TrimSpace(subject))
	if m == nil {
		return change{}, false
	}
	c := change{
		kind:     strings.ToLower(m[1]),
		scope:    m[2],
		breaking: m[3] == "!" || strings.Contains(message, "BREAKING CHANGE:"),
		summary:  m[4],
	}
	return c, true
}

func listed(kind string) bool {
	for _, t := range commitTypes {
		if t.kind == kind {
			return true
		}
	}
	return false
}

func tagsByCommit(repo *git.Repository) (map[plumbing.Hash]string, error) {
	refs, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("could not list tags: %w", err)
	}
	tags := make(map[plumbing.Hash]string)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		hash := ref.Hash()
		if tag, err := repo.TagObject(hash); err == nil {
			c, err := tag.Commit()
			if err != nil {
				return nil
			}
			hash = c.Hash
		}
		tags[hash] = ref.Name().Short()
		return nil
	})
	return tags, err
}

func collectReleases(path, next, since string) ([]release, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("could not open git repo: %w", err)
	}
	tags, err := tagsByCommit(repo)
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("could not establish current commit: %w", err)
	}
	commits, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("could not read git log: %w", err)
	}
	defer commits.Close()

	current := &release{name: next}
	var releases []release
	err = commits.ForEach(func(c *object.Commit) error {
		if tag, ok := tags[c.Hash]; ok {
			if tag == since {
				return storer.ErrStop
			}
			releases = append(releases, *current)
			current = &release{name: tag, date: c.Committer.When}
		}
		if ch, ok := parseSubject(c.Message); ok && listed(ch.kind) {
			ch.hash = c.Hash.String()[:7]
			current.changes = append(current.changes, ch)
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("could not walk git log: %w", err)
	}
	releases = append(releases, *current)
	return releases, nil
}

func renderChangelog(releases []release) string {
	var sb strings.Builder
	sb.WriteString("# Changelog\n")
	for _, r := range releases {
		if len(r.changes) == 0 {
			continue
		}
		sb.WriteString("\n## ")
		sb.WriteString(r.name)
		if !r.date.IsZero() {
			sb.WriteString(" (" + r.date.Format(time.DateOnly) + ")")
		}
		sb.WriteString("\n")
		for _, t := range commitTypes {
			var lines []string
			for _, c := range r.changes {
				if c.kind != t.kind {
					continue
				}
				line := "- "
				if c.breaking {
					line += "**breaking** "
				}
				if c.scope != "" {
					line += "**" + c.scope + ":** "
				}
				lines = append(lines, line+c.summary+" ("+c.hash+")")
			}
			if len(lines) == 0 {
				continue
			}
			sb.WriteString("\n### " + t.heading + "\n\n")
			sb.WriteString(strings.Join(lines, "\n"))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
