package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/huangang/projecthub/internal/metrics"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/pkg/logger"
)

// NotificationService turns membership events into queued email jobs.
type NotificationService struct {
	uow    *UnitOfWork
	queue  TaskQueue
	mailer Mailer
}

func NewNotificationService(uow *UnitOfWork, queue TaskQueue, mailer Mailer) *NotificationService {
	return &NotificationService{uow: uow, queue: queue, mailer: mailer}
}

// MemberAdded enqueues a member:added job. Failures are logged only; a
// membership change never fails because mail could not be queued.
func (s *NotificationService) MemberAdded(ctx context.Context, member *models.ProjectMember, actor Actor) {
	if s.queue == nil || member == nil {
		return
	}

	task := &MemberAddedTask{
		ProjectID: member.ProjectID,
		UserID:    member.UserID,
		Role:      member.Role.String(),
		AddedBy:   actor.Name,
	}

	var project models.Project
	if err := s.uow.DB(ctx).Select("id", "name").Take(&project, "id = ?", member.ProjectID).Error; err == nil {
		task.ProjectName = project.Name
	}
	var user models.User
	if err := s.uow.DB(ctx).Select("id", "email", "first_name", "last_name").Take(&user, "id = ?", member.UserID).Error; err == nil {
		task.Email = user.Email
		task.Name = user.FullName()
	}
	if task.Email == "" {
		logger.Warn().Str("user_id", member.UserID).Msg("member notification skipped: no email")
		return
	}

	if err := s.queue.Enqueue(task); err != nil {
		logger.Error().Err(err).Str("project_id", member.ProjectID).Str("user_id", member.UserID).
			Msg("failed to enqueue member notification")
	}
}

// Process delivers one member:added job. It is the processor for both
// the sync queue and the Redis worker.
func (s *NotificationService) Process(ctx context.Context, task *MemberAddedTask) error {
	if s.mailer == nil {
		return nil
	}
	subject := fmt.Sprintf("[ProjectHub] You were added to %s", task.ProjectName)
	if err := s.mailer.Send(ctx, []string{task.Email}, subject, memberAddedBody(task)); err != nil {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		return err
	}
	metrics.NotificationsSent.WithLabelValues("sent").Inc()
	return nil
}

func memberAddedBody(t *MemberAddedTask) string {
	var sb strings.Builder
	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString(fmt.Sprintf("<p>Hello %s,</p>", html.EscapeString(t.Name)))
	sb.WriteString(fmt.Sprintf("<p>You have been added to the project <strong>%s</strong> as <strong>%s</strong>",
		html.EscapeString(t.ProjectName), html.EscapeString(t.Role)))
	if t.AddedBy != "" {
		sb.WriteString(fmt.Sprintf(" by %s", html.EscapeString(t.AddedBy)))
	}
	sb.WriteString(".</p>")
	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">ProjectHub</p>")
	sb.WriteString("</body></html>")
	return sb.String()
}
