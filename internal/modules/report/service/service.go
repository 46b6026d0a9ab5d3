package report

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	reportDto "github.com/edulab-vn/topic-management-api/internal/modules/report/dto"
	repo "github.com/edulab-vn/topic-management-api/internal/modules/report/repository"
	roleRepo "github.com/edulab-vn/topic-management-api/internal/modules/role/repository"
	topicRepo "github.com/edulab-vn/topic-management-api/internal/modules/topic/repository"
	userRepo "github.com/edulab-vn/topic-management-api/internal/modules/user/repository"
	"github.com/edulab-vn/topic-management-api/pkg/apperror"
	"github.com/edulab-vn/topic-management-api/pkg/cache"
	"github.com/edulab-vn/topic-management-api/pkg/database"
	"github.com/edulab-vn/topic-management-api/pkg/dto"
	"github.com/edulab-vn/topic-management-api/pkg/mailer"
	"github.com/edulab-vn/topic-management-api/pkg/storage"
)

const uploadFolder = "reports"

type Service interface {
	Create(ctx context.Context, topicID, userID uuid.UUID, req reportDto.CreateReportRequest) (*reportDto.ReportResponse, error)
	FindAll(ctx context.Context, topicID, userID, roleID uuid.UUID, filter reportDto.ReportFilter) (*dto.Paginated[reportDto.ReportResponse], error)
	Update(ctx context.Context, reportID, userID uuid.UUID, req reportDto.UpdateReportRequest) (*reportDto.ReportResponse, error)
	Remove(ctx context.Context, reportID, userID uuid.UUID) error
	Upload(ctx context.Context, r io.Reader, filename string) (string, error)
}

type service struct {
	reportRepo repo.Repository
	topicRepo  topicRepo.Repository
	userRepo   userRepo.Repository
	roleRepo   roleRepo.Repository
	cache      cache.Store
	cacheTTL   time.Duration
	mail       mailer.Queue
	files      storage.FileStorage
	mailFrom   string
}

func NewService(
	reportRepo repo.Repository,
	topicRepository topicRepo.Repository,
	userRepository userRepo.Repository,
	roleRepository roleRepo.Repository,
	cacheStore cache.Store,
	cacheTTL time.Duration,
	mail mailer.Queue,
	files storage.FileStorage,
	mailFrom string,
) Service {
	return &service{
		reportRepo: reportRepo,
		topicRepo:  topicRepository,
		userRepo:   userRepository,
		roleRepo:   roleRepository,
		cache:      cacheStore,
		cacheTTL:   cacheTTL,
		mail:       mail,
		files:      files,
		mailFrom:   mailFrom,
	}
}

// Create inserts the report in a repeatable-read transaction, rejecting
// closed topics. Notifications to the other participants are enqueued after
// commit; a mail outage cannot roll back a persisted report.
func (s *service) Create(ctx context.Context, topicID, userID uuid.UUID, req reportDto.CreateReportRequest) (*reportDto.ReportResponse, error) {
	enrolled, err := s.topicRepo.IsParticipant(ctx, topicID, userID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, fmt.Errorf("you are not a participant of this topic: %w", apperror.ErrForbidden)
	}

	author, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", apperror.ErrUnauthorized)
	}

	report := &entity.Report{
		TopicID:     topicID,
		UserID:      userID,
		Description: req.Description,
		Filename:    req.Filename,
		Status:      entity.ReportStatusPending,
	}

	var recipients []entity.User
	var topicName string
	err = s.reportRepo.Transaction(ctx, database.TxReportCreate, func(ctx context.Context, r repo.Repository) error {
		if err := r.Create(ctx, report); err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}

		topic, err := r.FindTopic(ctx, topicID)
		if err != nil {
			return fmt.Errorf("topic not found: %w", apperror.ErrNotFound)
		}
		if topic.Closed() {
			return fmt.Errorf("topic is closed for new reports: %w", apperror.ErrValidation)
		}

		topicName = topic.Name
		for _, tu := range topic.TopicUsers {
			if tu.UserID != userID {
				recipients = append(recipients, tu.User)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReportCache(ctx)
	s.notifyParticipants(ctx, author, topicName, report, recipients)

	report.User = *author
	resp := reportDto.NewReportResponse(report)
	return &resp, nil
}

func (s *service) FindAll(ctx context.Context, topicID, userID, roleID uuid.UUID, filter reportDto.ReportFilter) (*dto.Paginated[reportDto.ReportResponse], error) {
	filter.Normalize()

	if err := s.assertCanViewTopic(ctx, topicID, userID, roleID); err != nil {
		return nil, err
	}

	// The cache key does not encode the page. A hit recorded under a
	// different page is invalidated rather than served stale.
	key := reportCacheKey(topicID, filter.Status)
	var cached dto.Paginated[reportDto.ReportResponse]
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		if cached.CurrentPage == filter.Page {
			return &cached, nil
		}
		if err := s.cache.DeleteByPrefix(ctx, key); err != nil {
			log.Printf("failed to invalidate mismatched report cache: %v", err)
		}
	}

	reports, total, err := s.reportRepo.FindAllByTopic(ctx, topicID, filter.Status, filter.Page, filter.PageSize)
	if err != nil {
		return nil, err
	}

	responses := make([]reportDto.ReportResponse, 0, len(reports))
	for i := range reports {
		responses = append(responses, reportDto.NewReportResponse(&reports[i]))
	}
	page := dto.NewPaginated(responses, total, filter.Page, filter.PageSize)

	if err := s.cache.Set(ctx, key, page, s.cacheTTL); err != nil {
		log.Printf("failed to cache report list: %v", err)
	}
	return page, nil
}

// Update runs at serializable isolation with a short timeout; a single report
// row sees tighter contention than a whole topic. Teachers of the owning
// topic may change anything; the submitting student only filename and
// description.
func (s *service) Update(ctx context.Context, reportID, userID uuid.UUID, req reportDto.UpdateReportRequest) (*reportDto.ReportResponse, error) {
	caller, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", apperror.ErrUnauthorized)
	}

	var updated *entity.Report
	err = s.reportRepo.Transaction(ctx, database.TxReportEdit, func(ctx context.Context, r repo.Repository) error {
		report, err := r.FindByID(ctx, reportID)
		if err != nil {
			return fmt.Errorf("report not found: %w", apperror.ErrNotFound)
		}

		// Enrollment is checked before the role split: leaving the topic
		// revokes access to its reports, owned ones included.
		enrolled, err := s.topicRepo.IsParticipant(ctx, report.TopicID, userID)
		if err != nil {
			return err
		}
		if !enrolled {
			return fmt.Errorf("you are not a participant of this topic: %w", apperror.ErrForbidden)
		}

		switch {
		case s.isTopicTeacher(ctx, caller, report.TopicID):
			if req.Description != nil {
				report.Description = *req.Description
			}
			if req.Filename != nil {
				report.Filename = *req.Filename
			}
			if req.Status != nil {
				report.Status = *req.Status
			}

		case caller.Role.Name == entity.RoleStudent && report.UserID == userID:
			if req.Status != nil {
				return fmt.Errorf("students cannot change a report's status: %w", apperror.ErrForbidden)
			}
			if req.Description != nil {
				report.Description = *req.Description
			}
			if req.Filename != nil {
				report.Filename = *req.Filename
			}

		default:
			return fmt.Errorf("you cannot modify this report: %w", apperror.ErrForbidden)
		}

		updated = report
		return r.Update(ctx, report)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReportCache(ctx)

	resp := reportDto.NewReportResponse(updated)
	return &resp, nil
}

func (s *service) Remove(ctx context.Context, reportID, userID uuid.UUID) error {
	caller, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user not found: %w", apperror.ErrUnauthorized)
	}

	var fileURL string
	err = s.reportRepo.Transaction(ctx, database.TxReportDelete, func(ctx context.Context, r repo.Repository) error {
		report, err := r.FindByID(ctx, reportID)
		if err != nil {
			return fmt.Errorf("report not found: %w", apperror.ErrNotFound)
		}

		enrolled, err := s.topicRepo.IsParticipant(ctx, report.TopicID, userID)
		if err != nil {
			return err
		}
		if !enrolled {
			return fmt.Errorf("you are not a participant of this topic: %w", apperror.ErrForbidden)
		}

		owns := caller.Role.Name == entity.RoleStudent && report.UserID == userID
		if !owns && !s.isTopicTeacher(ctx, caller, report.TopicID) {
			return fmt.Errorf("you cannot delete this report: %w", apperror.ErrForbidden)
		}

		fileURL = report.Filename
		return r.Delete(ctx, reportID)
	})
	if err != nil {
		return err
	}

	s.invalidateReportCache(ctx)

	if s.files != nil && fileURL != "" {
		if err := s.files.DeleteFile(ctx, fileURL); err != nil {
			log.Printf("failed to delete report file %s: %v", fileURL, err)
		}
	}
	return nil
}

func (s *service) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	url, err := s.files.UploadFile(ctx, r, uploadFolder, filename)
	if err != nil {
		return "", fmt.Errorf("file upload failed: %w", apperror.ErrInternal)
	}
	return url, nil
}

func (s *service) assertCanViewTopic(ctx context.Context, topicID, userID, roleID uuid.UUID) error {
	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role not found: %w", apperror.ErrUnauthorized)
	}
	if role.Name == entity.RoleAdmin {
		return nil
	}

	enrolled, err := s.topicRepo.IsParticipant(ctx, topicID, userID)
	if err != nil {
		return err
	}
	if !enrolled {
		return fmt.Errorf("you are not a participant of this topic: %w", apperror.ErrForbidden)
	}
	return nil
}

func (s *service) isTopicTeacher(ctx context.Context, caller *entity.User, topicID uuid.UUID) bool {
	if caller.Role.Name != entity.RoleTeacher {
		return false
	}
	enrolled, err := s.topicRepo.IsParticipant(ctx, topicID, caller.ID)
	if err != nil {
		return false
	}
	return enrolled
}

func (s *service) notifyParticipants(ctx context.Context, author *entity.User, topicName string, report *entity.Report, recipients []entity.User) {
	subject := fmt.Sprintf("New report in topic %q", topicName)
	html := fmt.Sprintf(
		"<p><b>%s</b> (%s) submitted a new report in <b>%s</b>.</p><p>%s</p><p><a href=%q>Open report file</a></p>",
		author.Name, author.Role.Name, topicName, report.Description, report.Filename,
	)

	for _, recipient := range recipients {
		msg := mailer.Message{
			From:    s.mailFrom,
			To:      recipient.Email,
			Subject: subject,
			HTML:    html,
		}
		if err := s.mail.Enqueue(ctx, msg); err != nil {
			log.Printf("failed to enqueue report notification for %s: %v", recipient.Email, err)
		}
	}
}

func (s *service) invalidateReportCache(ctx context.Context) {
	if err := s.cache.DeleteByPrefix(ctx, cache.KeyReport); err != nil {
		log.Printf("failed to invalidate report cache: %v", err)
	}
}

func reportCacheKey(topicID uuid.UUID, status *int) string {
	if status != nil {
		return fmt.Sprintf("%s:%s:%d", cache.KeyReport, topicID, *status)
	}
	return fmt.Sprintf("%s:%s", cache.KeyReport, topicID)
}
