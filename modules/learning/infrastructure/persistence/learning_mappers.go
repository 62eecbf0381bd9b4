package persistence

import (
	"encoding/json"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/enrollment"
	"github.com/openlms-dev/openlms/modules/learning/domain/aggregates/plan"
	"github.com/openlms-dev/openlms/modules/learning/infrastructure/persistence/models"
)

func toDomainEnrollment(row *models.Enrollment) (*enrollment.Enrollment, error) {
	tenantID, err := uuid.Parse(row.TenantID)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse enrollment tenant id")
	}

	var history []enrollment.HistoryEntry
	if len(row.History) > 0 {
		if err := json.Unmarshal(row.History, &history); err != nil {
			return nil, gerrors.Wrap(err, "decode enrollment history")
		}
	}

	return &enrollment.Enrollment{
		ID:              row.ID,
		TenantID:        tenantID,
		UserID:          row.UserID,
		ContentID:       row.ContentID,
		ParentContentID: row.ParentContentID,
		ParentID:        row.ParentID,
		ContentType:     row.ContentType,
		ElectiveCount:   row.ElectiveCount,
		Status:          enrollment.Status(row.Status),
		Passed:          row.Passed,
		Result:          row.Result,
		StartedAt:       row.StartedAt,
		EndedAt:         row.EndedAt,
		ChangedAt:       row.ChangedAt,
		History:         history,
		CreatedBy:       row.CreatedBy,
	}, nil
}

func toDBEnrollment(e *enrollment.Enrollment) (*models.Enrollment, error) {
	history, err := json.Marshal(e.History)
	if err != nil {
		return nil, gerrors.Wrap(err, "encode enrollment history")
	}

	return &models.Enrollment{
		ID:              e.ID,
		TenantID:        e.TenantID.String(),
		UserID:          e.UserID,
		ContentID:       e.ContentID,
		ParentContentID: e.ParentContentID,
		ParentID:        e.ParentID,
		ContentType:     e.ContentType,
		ElectiveCount:   e.ElectiveCount,
		Status:          string(e.Status),
		Passed:          e.Passed,
		Result:          e.Result,
		StartedAt:       e.StartedAt,
		EndedAt:         e.EndedAt,
		ChangedAt:       e.ChangedAt,
		History:         history,
		CreatedBy:       e.CreatedBy,
	}, nil
}

func toDomainPlan(row *models.Plan) (*plan.Plan, error) {
	tenantID, err := uuid.Parse(row.TenantID)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse plan tenant id")
	}

	var original plan.Original
	if len(row.Original) > 0 {
		if err := json.Unmarshal(row.Original, &original); err != nil {
			return nil, gerrors.Wrap(err, "decode plan original")
		}
	}

	return &plan.Plan{
		ID:         row.ID,
		TenantID:   tenantID,
		UserID:     row.UserID,
		AssignerID: row.AssignerID,
		EntityType: plan.EntityType(row.EntityType),
		EntityID:   row.EntityID,
		Status:     plan.Status(row.Status),
		Archived:   row.Archived,
		DueAt:      row.DueAt,
		CreatedAt:  row.CreatedAt,
		Note:       row.Note,
		Original:   original,
	}, nil
}

func toDBPlan(p *plan.Plan) *models.Plan {
	return &models.Plan{
		ID:         p.ID,
		TenantID:   p.TenantID.String(),
		UserID:     p.UserID,
		AssignerID: p.AssignerID,
		EntityType: string(p.EntityType),
		EntityID:   p.EntityID,
		Status:     string(p.Status),
		Archived:   p.Archived,
		DueAt:      p.DueAt,
		CreatedAt:  p.CreatedAt,
		Note:       p.Note,
	}
}

func toDBRevision(rev *enrollment.Revision) (*models.EnrollmentRevision, error) {
	snapshot, err := json.Marshal(rev.Snapshot)
	if err != nil {
		return nil, gerrors.Wrap(err, "encode enrollment snapshot")
	}
	return &models.EnrollmentRevision{
		ID:           rev.ID,
		TenantID:     rev.TenantID.String(),
		EnrollmentID: rev.EnrollmentID,
		Snapshot:     snapshot,
		CreatedBy:    rev.CreatedBy,
		CreatedAt:    rev.CreatedAt,
	}, nil
}
