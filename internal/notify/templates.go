package notify

import (
	"fmt"
	"html"
	"strings"

	"daily-tracker/internal/model"
)

func scheduledText(task model.Task, fallback string) string {
	if task.ScheduledTime == nil || strings.TrimSpace(*task.ScheduledTime) == "" {
		return fallback
	}
	return strings.TrimSpace(*task.ScheduledTime)
}

// PushText is the short in-app message stored with the notification record.
func PushText(task model.Task, typ model.ReminderType) string {
	at := scheduledText(task, "")
	switch typ {
	case model.ReminderPreStart:
		return fmt.Sprintf("⏰ Upcoming: %q at %s", task.Title, at)
	case model.ReminderOnTime:
		return fmt.Sprintf("🔔 Time to start: %q", task.Title)
	case model.ReminderOverdue:
		return fmt.Sprintf("❗ Overdue: %q (%s) - Still pending!", task.Title, at)
	default:
		return "Task reminder: " + task.Title
	}
}

func EmailSubject(task model.Task, typ model.ReminderType) string {
	switch typ {
	case model.ReminderPreStart:
		return "⏰ Upcoming Task: " + task.Title
	case model.ReminderOnTime:
		return "🔔 Task Now: " + task.Title
	case model.ReminderOverdue:
		return "❗ Overdue Task: " + task.Title
	default:
		return "Task Reminder: " + task.Title
	}
}

func emailLead(typ model.ReminderType) string {
	switch typ {
	case model.ReminderPreStart:
		return "Your task is coming up soon!"
	case model.ReminderOnTime:
		return "It's time to start this task!"
	case model.ReminderOverdue:
		return "This task is still incomplete."
	default:
		return ""
	}
}

// EmailBody renders the HTML reminder mail. Task fields are escaped.
func EmailBody(task model.Task, typ model.ReminderType) string {
	desc := strings.TrimSpace(task.Description)
	if desc == "" {
		desc = "No description"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><body style=\"font-family: Arial, sans-serif; color: #333;\">\n")
	b.WriteString("<div style=\"max-width: 600px; margin: 0 auto; padding: 20px;\">\n")
	b.WriteString("<h1>📋 Task Reminder</h1>\n")
	b.WriteString(fmt.Sprintf("<p>%s</p>\n", html.EscapeString(emailLead(typ))))
	b.WriteString("<div style=\"border-left: 4px solid #667eea; padding: 20px; background: #fff;\">\n")
	b.WriteString(fmt.Sprintf("<div style=\"font-size: 20px; font-weight: bold; color: #667eea;\">%s</div>\n", html.EscapeString(task.Title)))
	b.WriteString(fmt.Sprintf("<div style=\"color: #666;\">⏰ Scheduled Time: %s</div>\n", html.EscapeString(scheduledText(task, "No time set"))))
	b.WriteString(fmt.Sprintf("<div>%s</div>\n", html.EscapeString(desc)))
	b.WriteString("</div>\n")
	b.WriteString("<p>Open your Task Tracker app to mark this task as complete.</p>\n")
	b.WriteString("<p style=\"color: #999; font-size: 12px;\">Daily To-Do Tracker | Stay productive, stay consistent 🚀</p>\n")
	b.WriteString("</div>\n</body></html>\n")
	return b.String()
}

func SMSText(task model.Task, typ model.ReminderType) string {
	at := scheduledText(task, "No time")
	switch typ {
	case model.ReminderPreStart:
		return fmt.Sprintf("⏰ Task Reminder: %q is coming up at %s. Get ready!", task.Title, at)
	case model.ReminderOnTime:
		return fmt.Sprintf("🔔 It's time! Task: %q scheduled for %s. Start now!", task.Title, at)
	case model.ReminderOverdue:
		return fmt.Sprintf("❗ Overdue: Task %q (%s) is still incomplete. Complete it now!", task.Title, at)
	default:
		return fmt.Sprintf("📋 Task Reminder: %s at %s", task.Title, at)
	}
}

// TelegramText is sent with HTML parse mode.
func TelegramText(task model.Task, typ model.ReminderType) string {
	title := html.EscapeString(strings.TrimSpace(task.Title))
	at := html.EscapeString(scheduledText(task, "—"))

	var b strings.Builder
	switch typ {
	case model.ReminderPreStart:
		b.WriteString(fmt.Sprintf("⏰ <b>%s</b> starts at %s", title, at))
	case model.ReminderOnTime:
		b.WriteString(fmt.Sprintf("🔔 Time to start: <b>%s</b>", title))
	case model.ReminderOverdue:
		b.WriteString(fmt.Sprintf("❗ <b>%s</b> (%s) is still pending", title, at))
	default:
		b.WriteString(fmt.Sprintf("📋 %s at %s", title, at))
	}
	if desc := strings.TrimSpace(task.Description); desc != "" {
		b.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(desc)))
	}
	return b.String()
}
