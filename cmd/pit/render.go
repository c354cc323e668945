package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"pit/internal/diff"
	"pit/internal/repo"
	"pit/shared/types"
)

func printStatus(s *shared.Status) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	head := s.Commit
	if len(head) > 8 {
		head = head[:8]
	}
	if head == "" {
		head = "no commits yet"
	}
	fmt.Printf("On branch %s (%s)\n", blue(s.Branch), head)

	if s.Clean() {
		fmt.Println("Nothing to commit, working tree clean")
		return
	}

	if staged := s.Staged(); len(staged) > 0 {
		fmt.Println("\nChanges to be committed:")
		fmt.Println("  (use \"pit commit -m <message>\" to record them)")
		for _, c := range staged {
			fmt.Printf("\t%s %s\n", green(label(c.Type)), c.Path)
		}
	}

	if unstaged := s.Unstaged(); len(unstaged) > 0 {
		fmt.Println("\nChanges not staged for commit:")
		fmt.Println("  (use \"pit add <file>...\" to stage them)")
		for _, c := range unstaged {
			mark := yellow(label(c.Type))
			if c.Type == shared.ChangeDeleted {
				mark = red(label(c.Type))
			}
			fmt.Printf("\t%s %s\n", mark, c.Path)
		}
	}

	if untracked := s.Untracked(); len(untracked) > 0 {
		fmt.Println("\nUntracked files:")
		for _, c := range untracked {
			fmt.Printf("\t%s %s\n", red("?"), c.Path)
		}
	}
}

func label(t shared.ChangeType) string {
	return fmt.Sprintf("%-9s", string(t)+":")
}

func printDiff(rep *repo.DiffReport) {
	header := color.New(color.FgCyan, color.Bold)

	if len(rep.Files) == 0 {
		fmt.Println("No changes")
		return
	}
	if !rep.Working {
		header.Printf("comparing %s..%s\n\n", rep.Base.Short(), rep.Target.Short())
	}

	for _, f := range rep.Files {
		header.Printf("%s %s\n", f.Status, f.Path)
		if f.Result != nil {
			if f.Result.Large {
				fmt.Println(color.New(color.Faint).Sprint("(too large to align, shown as a full replacement)"))
			}
			printColoredDiff(f.Result.Format())
		}
		fmt.Println()
	}
}

func printColoredDiff(text string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	hunk := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			hunk.Println(line)
		case strings.HasPrefix(line, diff.Marker(diff.Inserted)):
			added.Println(line)
		case strings.HasPrefix(line, diff.Marker(diff.Deleted)):
			removed.Println(line)
		default:
			fmt.Println(line)
		}
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
