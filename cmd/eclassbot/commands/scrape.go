package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"eclassbot-backend/internal/snapshot"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeAllCmd)
	rootCmd.AddCommand(scrapeOneCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(checkCredentialsCmd)
	rootCmd.AddCommand(snapshotCmd)
}

var scrapeAllCmd = &cobra.Command{
	Use:   "scrape-all",
	Short: "Scrapes every registered student once and prints the run report as json.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.service.ScrapeAll(cmd.Context())
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	},
}

var scrapeOneCmd = &cobra.Command{
	Use:   "scrape-one <student> [password]",
	Short: "Scrapes one student without notifying, using the stored password unless one is given.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var password string
		if len(args) == 2 {
			password = args[1]
		} else {
			student, err := a.q.GetStudent(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get student %s: %w", args[0], err)
			}
			password = student.Password.String
		}
		snap, err := a.service.ScrapeOne(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		printSnapshot(snap)
		return nil
	},
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <student>",
	Short: "Queues a scrape_one job for a running worker.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		started, err := a.service.RequestScrape(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !started {
			fmt.Println("a scrape is already in progress for", args[0])
			return nil
		}
		fmt.Println("queued", args[0])
		return nil
	},
}

var checkCredentialsCmd = &cobra.Command{
	Use:   "check-credentials <username> <password>",
	Short: "Checks whether the portal accepts a username and password.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ok, msg := a.service.CheckCredentials(cmd.Context(), args[0], args[1])
		if !ok {
			return fmt.Errorf("rejected: %s", msg)
		}
		fmt.Println("ok")
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <student>",
	Short: "Prints the cached snapshot of a student's last scrape.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.service.Snapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSnapshot(snap)
		return nil
	},
}

func printSnapshot(snap snapshot.Snapshot) {
	fmt.Printf("%s %s (%s)\n", snap.FirstName, snap.LastName, snap.StudentID)

	subjects := table.NewWriter()
	subjects.SetOutputMirror(os.Stdout)
	subjects.SetStyle(table.StyleLight)
	subjects.AppendHeader(table.Row{"Code", "Subject", "Professor", "Attendance", "Absence", "Late"})
	for _, s := range snap.Subjects {
		subjects.AppendRow(table.Row{
			s.SubjectCode,
			s.SubjectName,
			s.ProfessorName,
			s.AttendanceTotals.Attendance,
			s.AttendanceTotals.Absence,
			s.AttendanceTotals.Late,
		})
	}
	subjects.Render()

	items := table.NewWriter()
	items.SetOutputMirror(os.Stdout)
	items.SetStyle(table.StyleLight)
	items.AppendHeader(table.Row{"Code", "Kind", "Name", "Deadline", "Status", "Grade"})
	for _, s := range snap.Subjects {
		for _, item := range s.Assignments {
			items.AppendRow(table.Row{s.SubjectCode, "assignment", item.Title, item.DueDate, item.Submission, item.Grade})
		}
		for _, item := range s.Quizzes {
			items.AppendRow(table.Row{s.SubjectCode, "quiz", item.Name, item.Closes, string(item.Status), item.Grade})
		}
	}
	if items.Length() > 0 {
		items.Render()
	} else {
		fmt.Println("no open items")
	}
}
