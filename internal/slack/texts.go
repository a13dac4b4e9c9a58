package slack

import "github.com/anshMconsultadd/timesheet-bot/internal/domain"

const (
	weeklyReminderText = "⏰ *Weekly Timesheet Reminder*\n\n" +
		"Don't forget to fill your weekly timesheet for this week!\n" +
		"Use `/postTimesheetWeekly` to submit."

	monthlyReminderText = "⏰ *Monthly Timesheet Reminder*\n\n" +
		"Don't forget to fill your monthly timesheet!\n" +
		"Use `/postTimesheetMonthly` to submit."

	noEntriesText = "_No timesheet entries found for this period._"
)

// User-facing command responses.
const (
	TextModalOpening     = "Opening timesheet form..."
	TextEditOpening      = "Opening edit form..."
	TextEditNoHistory    = "No previous timesheet found to edit. Please submit a new timesheet first."
	TextReportGenerating = "📊 Generating detailed report with missing users... You'll receive it via DM shortly."
	TextManagersOnly     = "❌ Only managers can manage timesheet exemptions."
	TextMentionRequired  = "❌ Please mention a user.\nUsage: `/exemptUser @username`"
	TextGenericFailure   = "Something went wrong. Please try again."
)

func typeTitle(t domain.Type) string {
	if t == domain.Monthly {
		return "Monthly"
	}
	return "Weekly"
}
