package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Joseda-hg/lazydesk/internal/model"
)

func formatIDs(ids []int64) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

func formatTaskSummary(task model.Task) string {
	marker := " "
	if task.Important {
		marker = "!"
	}
	return fmt.Sprintf("%s #%d %s | status %d | %s", marker, task.ID, task.Title, task.StatusID, humanize.Time(task.CreatedAt))
}

// formatFilterSummary flags a filter with p (public), r (report),
// m (remembered) and - (inactive). Filters owned by someone else are marked
// with their creator.
func formatFilterSummary(f model.Filter, userID int64) string {
	flags := []byte("    ")
	if f.Public {
		flags[0] = 'p'
	}
	if f.Report {
		flags[1] = 'r'
	}
	if f.Remembered {
		flags[2] = 'm'
	}
	if !f.Active {
		flags[3] = '-'
	}
	summary := fmt.Sprintf("[%s] %s", flags, f.Title)
	if f.CreatedBy != userID {
		summary += fmt.Sprintf(" (user %d)", f.CreatedBy)
	}
	return summary
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "n/a"
	}
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04"), humanize.Time(*t))
}

func taskDetailLines(task model.Task, comments []model.Comment) []string {
	project := "none"
	if task.ProjectID != nil {
		project = strconv.FormatInt(*task.ProjectID, 10)
	}

	lines := []string{
		fmt.Sprintf("#%d %s", task.ID, task.Title),
		fmt.Sprintf("Status: %d | Project: %s | Important: %t | Archived: %t", task.StatusID, project, task.Important, task.Archived),
		fmt.Sprintf("Created: %s by user %d", formatOptionalTime(&task.CreatedAt), task.CreatedBy),
		fmt.Sprintf("Started: %s", formatOptionalTime(task.StartedAt)),
		fmt.Sprintf("Deadline: %s", formatOptionalTime(task.DeadlineAt)),
		fmt.Sprintf("Closed: %s", formatOptionalTime(task.ClosedAt)),
		fmt.Sprintf("Assigned: %s | Followers: %s | Tags: %s", formatIDs(task.AssigneeIDs), formatIDs(task.FollowerIDs), formatIDs(task.TagIDs)),
		"",
		strings.TrimSpace(task.Description),
	}

	if len(comments) > 0 {
		lines = append(lines, "", fmt.Sprintf("Comments (%s):", humanize.Comma(int64(len(comments)))))
		for _, comment := range comments {
			label := ""
			if comment.Internal {
				label = " [internal]"
			}
			lines = append(lines,
				fmt.Sprintf("- user %d, %s%s", comment.CreatedBy, humanize.Time(comment.CreatedAt), label),
				fmt.Sprintf("  %s", strings.TrimSpace(comment.Body)),
			)
		}
	}
	return lines
}
