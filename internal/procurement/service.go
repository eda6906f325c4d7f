package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// maxNumberAttempts bounds PO number regeneration on collisions.
const maxNumberAttempts = 3

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, number string) (StoredOrder, error)
	ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]POListItem, int, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DispatchPort hands sent purchase orders to the background transmitter.
type DispatchPort interface {
	EnqueuePODispatch(ctx context.Context, poNumber string) error
}

// MetricsPort receives submission outcomes.
type MetricsPort interface {
	RecordPOSubmission(status string)
	RecordPOValidationFailure(code string)
}

// Service orchestrates draft sessions and purchase order submission.
type Service struct {
	repo        RepositoryPort
	drafts      DraftStore
	catalog     catalog.Provider
	audit       AuditPort
	dispatcher  DispatchPort
	metrics     MetricsPort
	logger      *slog.Logger
	builderOpts []BuilderOption
}

// NewService constructs procurement service. audit, dispatcher and metrics may be nil.
func NewService(repo RepositoryPort, drafts DraftStore, provider catalog.Provider, audit AuditPort, dispatcher DispatchPort, metrics MetricsPort, logger *slog.Logger, opts ...BuilderOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		drafts:      drafts,
		catalog:     provider,
		audit:       audit,
		dispatcher:  dispatcher,
		metrics:     metrics,
		logger:      logger,
		builderOpts: opts,
	}
}

// DraftView is the client facing state of an editing session.
type DraftView struct {
	SessionID   string    `json:"session_id"`
	Draft       Draft     `json:"draft"`
	TotalAmount Money     `json:"total_amount"`
	Warnings    []Warning `json:"warnings"`
}

// OpenDraftInput selects between a fresh draft and reopening a stored one.
type OpenDraftInput struct {
	ExistingPONumber string
}

// HeaderInput carries optional header changes. Nil fields are left untouched.
type HeaderInput struct {
	SupplierID           *string
	BranchID             *string
	OrderDate            *time.Time
	ExpectedDeliveryDate *time.Time
	Notes                *string
}

// LineInput carries optional line changes. Nil fields are left untouched.
type LineInput struct {
	Quantity  *int
	UnitPrice *Money
	Notes     *string
}

// SubmitResult is returned after a successful submission.
type SubmitResult struct {
	Order    PurchaseOrder `json:"order"`
	Warnings []Warning     `json:"warnings"`
}

// OpenDraft starts an editing session.
func (s *Service) OpenDraft(ctx context.Context, input OpenDraftInput) (DraftView, error) {
	snapshot, err := catalog.Load(ctx, s.catalog)
	if err != nil {
		return DraftView{}, err
	}
	var builder *Builder
	if input.ExistingPONumber == "" {
		builder = NewBuilder(snapshot, s.builderOpts...)
	} else {
		stored, err := s.repo.GetPO(ctx, input.ExistingPONumber)
		if err != nil {
			return DraftView{}, err
		}
		builder, err = EditBuilder(snapshot, stored.PurchaseOrder, s.builderOpts...)
		if err != nil {
			return DraftView{}, err
		}
	}
	id, draft, err := s.drafts.Create(ctx, builder.Snapshot())
	if err != nil {
		return DraftView{}, err
	}
	return newDraftView(id, draft, builder.Warnings()), nil
}

// GetDraft returns the session state with current warnings.
func (s *Service) GetDraft(ctx context.Context, sessionID string) (DraftView, error) {
	builder, draft, err := s.restore(ctx, sessionID)
	if err != nil {
		return DraftView{}, err
	}
	return newDraftView(sessionID, draft, builder.Warnings()), nil
}

// UpdateHeader applies header changes. The order date is applied before the expected delivery
// date so both can move in one request.
func (s *Service) UpdateHeader(ctx context.Context, sessionID string, input HeaderInput) (DraftView, error) {
	return s.mutate(ctx, sessionID, func(b *Builder) ([]Warning, error) {
		if input.SupplierID != nil {
			if err := b.SetSupplier(*input.SupplierID); err != nil {
				return nil, err
			}
		}
		if input.BranchID != nil {
			if err := b.SetBranch(*input.BranchID); err != nil {
				return nil, err
			}
		}
		if input.OrderDate != nil {
			b.SetOrderDate(*input.OrderDate)
		}
		if input.ExpectedDeliveryDate != nil {
			if err := b.SetExpectedDeliveryDate(*input.ExpectedDeliveryDate); err != nil {
				return nil, err
			}
		}
		if input.Notes != nil {
			b.SetNotes(*input.Notes)
		}
		return nil, nil
	})
}

// AddProducts appends lines for the given products.
func (s *Service) AddProducts(ctx context.Context, sessionID string, productIDs []string) (DraftView, error) {
	return s.mutate(ctx, sessionID, func(b *Builder) ([]Warning, error) {
		return b.AddProducts(productIDs...), nil
	})
}

// UpdateLine applies quantity, price and notes changes to one line.
func (s *Service) UpdateLine(ctx context.Context, sessionID, lineID string, input LineInput) (DraftView, error) {
	return s.mutate(ctx, sessionID, func(b *Builder) ([]Warning, error) {
		if input.Quantity != nil {
			if err := b.UpdateQuantity(lineID, *input.Quantity); err != nil {
				return nil, err
			}
		}
		if input.UnitPrice != nil {
			if err := b.UpdateUnitPrice(lineID, *input.UnitPrice); err != nil {
				return nil, err
			}
		}
		if input.Notes != nil {
			b.UpdateNotes(lineID, *input.Notes)
		}
		return nil, nil
	})
}

// RemoveLine drops a line from the draft.
func (s *Service) RemoveLine(ctx context.Context, sessionID, lineID string) (DraftView, error) {
	return s.mutate(ctx, sessionID, func(b *Builder) ([]Warning, error) {
		b.RemoveLine(lineID)
		return nil, nil
	})
}

// SubmitDraft validates and persists the draft. On validation failure the session is kept.
// The session is claimed with a version-checked save before anything is persisted, so a
// session can produce at most one purchase order.
func (s *Service) SubmitDraft(ctx context.Context, sessionID string, asDraft bool) (SubmitResult, error) {
	builder, draft, err := s.restore(ctx, sessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	if draft.SubmittedAs != "" {
		return SubmitResult{}, fmt.Errorf("%w as %s", ErrDraftSubmitted, draft.SubmittedAs)
	}
	po, err := builder.Submit(asDraft)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) && s.metrics != nil {
			s.metrics.RecordPOValidationFailure(string(verr.Code))
		}
		return SubmitResult{}, err
	}

	draft.SubmittedAs = po.PONumber
	claimed, err := s.drafts.Save(ctx, sessionID, draft)
	if err != nil {
		return SubmitResult{}, err
	}

	for attempt := 1; ; attempt++ {
		err = s.persist(ctx, po, draft.Editing)
		if err == nil {
			break
		}
		if draft.Editing || !errors.Is(err, ErrDuplicateNumber) || attempt >= maxNumberAttempts {
			s.release(ctx, sessionID, claimed)
			return SubmitResult{}, err
		}
		renumbered := builder.ids.PONumber(builder.now())
		s.logger.Warn("po number collision, regenerating",
			slog.String("po_number", po.PONumber), slog.String("next", renumbered))
		po.PONumber = renumbered
	}

	if s.metrics != nil {
		s.metrics.RecordPOSubmission(string(po.Status))
	}
	s.recordAudit(ctx, "PO_SUBMIT", po.PONumber, map[string]any{
		"status":  string(po.Status),
		"total":   int64(po.TotalAmount),
		"items":   len(po.Items),
		"editing": draft.Editing,
	})
	if po.Status == POStatusSent && s.dispatcher != nil {
		if err := s.dispatcher.EnqueuePODispatch(ctx, po.PONumber); err != nil {
			s.logger.Error("enqueue po dispatch", slog.String("po_number", po.PONumber), slog.Any("error", err))
		}
	}
	if err := s.drafts.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("delete submitted draft", slog.String("session_id", sessionID), slog.Any("error", err))
	}
	return SubmitResult{Order: po, Warnings: builder.Warnings()}, nil
}

// release reopens a claimed session after a failed persist so the user can retry.
func (s *Service) release(ctx context.Context, sessionID string, claimed Draft) {
	claimed.SubmittedAs = ""
	if _, err := s.drafts.Save(ctx, sessionID, claimed); err != nil {
		s.logger.Warn("release submitted draft", slog.String("session_id", sessionID), slog.Any("error", err))
	}
}

// DiscardDraft drops the session without persisting anything.
func (s *Service) DiscardDraft(ctx context.Context, sessionID string) error {
	if _, err := s.drafts.Get(ctx, sessionID); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, sessionID)
}

// GetPO loads a stored purchase order.
func (s *Service) GetPO(ctx context.Context, number string) (StoredOrder, error) {
	return s.repo.GetPO(ctx, number)
}

// ListPOs returns purchase orders with pagination and filters.
func (s *Service) ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]POListItem, int, error) {
	return s.repo.ListPOs(ctx, limit, offset, filters)
}

// MarkDispatched records the supplier transmission time of a sent order.
func (s *Service) MarkDispatched(ctx context.Context, number string, at time.Time) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stored, err := tx.GetPOForUpdate(ctx, number)
		if err != nil {
			return err
		}
		if stored.Status != POStatusSent {
			return fmt.Errorf("%w: %s is %s", ErrInvalidState, number, stored.Status)
		}
		return tx.MarkDispatched(ctx, number, at)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_DISPATCH", number, map[string]any{"dispatched_at": at})
	return nil
}

func (s *Service) persist(ctx context.Context, po PurchaseOrder, editing bool) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if editing {
			stored, err := tx.GetPOForUpdate(ctx, po.PONumber)
			switch {
			case errors.Is(err, ErrNotFound):
				if err := tx.InsertPO(ctx, po); err != nil {
					return err
				}
			case err != nil:
				return err
			case stored.Status == POStatusSent:
				return fmt.Errorf("%w: %s already sent", ErrInvalidState, po.PONumber)
			default:
				if err := tx.UpdatePO(ctx, po); err != nil {
					return err
				}
			}
		} else if err := tx.InsertPO(ctx, po); err != nil {
			return err
		}
		return tx.ReplaceLines(ctx, po.PONumber, po.Items)
	})
}

func (s *Service) restore(ctx context.Context, sessionID string) (*Builder, Draft, error) {
	draft, err := s.drafts.Get(ctx, sessionID)
	if err != nil {
		return nil, Draft{}, err
	}
	snapshot, err := catalog.Load(ctx, s.catalog)
	if err != nil {
		return nil, Draft{}, err
	}
	return RestoreBuilder(snapshot, draft, s.builderOpts...), draft, nil
}

func (s *Service) mutate(ctx context.Context, sessionID string, apply func(*Builder) ([]Warning, error)) (DraftView, error) {
	builder, draft, err := s.restore(ctx, sessionID)
	if err != nil {
		return DraftView{}, err
	}
	if draft.SubmittedAs != "" {
		return DraftView{}, fmt.Errorf("%w as %s", ErrDraftSubmitted, draft.SubmittedAs)
	}
	warnings, err := apply(builder)
	if err != nil {
		return DraftView{}, err
	}
	saved, err := s.drafts.Save(ctx, sessionID, builder.Snapshot())
	if err != nil {
		return DraftView{}, err
	}
	return newDraftView(sessionID, saved, append(warnings, builder.Warnings()...)), nil
}

func (s *Service) recordAudit(ctx context.Context, action, poNumber string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchase_order", EntityID: poNumber, Meta: meta}); err != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}

func newDraftView(sessionID string, draft Draft, warnings []Warning) DraftView {
	if warnings == nil {
		warnings = []Warning{}
	}
	return DraftView{
		SessionID:   sessionID,
		Draft:       draft,
		TotalAmount: totalOf(draft.Items),
		Warnings:    warnings,
	}
}
