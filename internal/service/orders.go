package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"kogma/internal/apierror"
	"kogma/internal/auth"
	"kogma/internal/events"
	"kogma/internal/metrics"
	"kogma/models"

	"github.com/go-playground/validator/v10"
)

var orderMessages = messages{
	notFound:  "Pedido não encontrado",
	conflict:  "Processo repetido no pedido",
	reference: "Cliente não encontrado",
}

// Orders serves order queries and mutations.
type Orders struct {
	store    OrderStore
	validate *validator.Validate
	notifier events.Notifier
	log      *slog.Logger
}

func NewOrders(store OrderStore, validate *validator.Validate, notifier events.Notifier, log *slog.Logger) *Orders {
	if log == nil {
		log = slog.Default()
	}
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &Orders{store: store, validate: validate, notifier: notifier, log: log.With("svc", "orders")}
}

// List returns orders newest first. status and q are optional filters; with
// withChildren every order carries its processes and materials.
func (s *Orders) List(ctx context.Context, p auth.Principal, status, q string, withChildren bool) ([]models.Order, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	st := models.OrderStatus(strings.TrimSpace(status))
	if st != "" && !st.Valid() {
		return nil, apierror.Validation("status inválido").Add("status", "valor inválido")
	}
	orders, err := s.store.ListOrders(ctx, models.OrderFilter{Status: st, Query: q, WithChildren: withChildren})
	if err != nil {
		return nil, storeError(err, orderMessages)
	}
	return orders, nil
}

func (s *Orders) Get(ctx context.Context, p auth.Principal, id int64) (*models.Order, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, storeError(err, orderMessages)
	}
	return o, nil
}

// Create validates the whole payload before writing anything. Omitted or
// empty processes seed the default pipeline.
func (s *Orders) Create(ctx context.Context, p auth.Principal, in models.CreateOrderInput) (int64, error) {
	if err := requireActive(p); err != nil {
		return 0, err
	}
	in.Title = strings.TrimSpace(in.Title)
	for i := range in.Materials {
		in.Materials[i].Description = strings.TrimSpace(in.Materials[i].Description)
	}
	if err := check(s.validate, in); err != nil {
		return 0, err
	}
	if err := duplicateProcesses("processes", in.Processes); err != nil {
		return 0, err
	}

	o := &models.Order{
		CompanyID:      in.CompanyID,
		Title:          in.Title,
		Qty:            in.Qty,
		Unit:           in.Unit,
		ClientDeadline: in.ClientDeadline,
		FinalDeadline:  in.FinalDeadline,
		Status:         in.Status,
	}
	if o.Unit == "" {
		o.Unit = models.UnitUnits
	}
	if o.Status == "" {
		o.Status = models.StatusOpen
	}
	processes := models.DefaultProcesses()
	if len(in.Processes) > 0 {
		processes = toSteps(in.Processes)
	}

	err := storeError(s.store.CreateOrder(ctx, o, processes, toLines(in.Materials)), orderMessages)
	metrics.ObserveOrderWrite("create", result(err))
	if err != nil {
		return 0, err
	}

	s.log.Info("order created", "order_id", o.ID, "company_id", o.CompanyID, "by", p.ID)
	s.notify(ctx, events.NewOrderEvent(events.OrderCreated, o.ID, p.ID))
	return o.ID, nil
}

// Patch applies a sparse update. Present processes or materials arrays
// replace the stored collections as a whole.
func (s *Orders) Patch(ctx context.Context, p auth.Principal, id int64, in models.PatchOrderInput) error {
	if err := requireActive(p); err != nil {
		return err
	}
	patch, err := s.buildPatch(in)
	if err != nil {
		return err
	}

	err = storeError(s.store.PatchOrder(ctx, id, patch), orderMessages)
	metrics.ObserveOrderWrite("patch", result(err))
	if err != nil {
		return err
	}

	s.log.Info("order patched", "order_id", id, "by", p.ID,
		"processes", patch.ReplaceProcesses, "materials", patch.ReplaceMaterials)
	s.notify(ctx, events.NewOrderEvent(events.OrderUpdated, id, p.ID))
	return nil
}

func (s *Orders) buildPatch(in models.PatchOrderInput) (models.OrderPatch, error) {
	var patch models.OrderPatch
	verr := apierror.Validation("Dados inválidos")
	notNull := func(field string, set, null bool) bool {
		if set && null {
			verr.Add(field, "não pode ser nulo")
			return false
		}
		return set
	}

	if notNull("company_id", in.CompanyID.Set, in.CompanyID.Null) {
		if in.CompanyID.Value <= 0 {
			verr.Add("company_id", "deve ser maior que 0")
		} else {
			patch.CompanyID = &in.CompanyID.Value
		}
	}
	if notNull("title", in.Title.Set, in.Title.Null) {
		t := strings.TrimSpace(in.Title.Value)
		switch {
		case t == "":
			verr.Add("title", "campo obrigatório")
		case utf8.RuneCountInString(t) > 190:
			verr.Add("title", "valor muito longo, máximo 190")
		default:
			patch.Title = &t
		}
	}
	if notNull("qty", in.Qty.Set, in.Qty.Null) {
		if !models.ValidQty(in.Qty.Value) {
			verr.Add("qty", apierror.QtyProblem)
		} else {
			patch.Qty = &in.Qty.Value
		}
	}
	if notNull("unit", in.Unit.Set, in.Unit.Null) {
		if !in.Unit.Value.Valid() {
			verr.Add("unit", "valor inválido")
		} else {
			patch.Unit = &in.Unit.Value
		}
	}
	if notNull("status", in.Status.Set, in.Status.Null) {
		if !in.Status.Value.Valid() {
			verr.Add("status", "valor inválido")
		} else {
			patch.Status = &in.Status.Value
		}
	}
	// deadlines are nullable: null and "" both decode to the zero Date
	if in.ClientDeadline.Set {
		patch.ClientDeadline = &in.ClientDeadline.Value
	}
	if in.FinalDeadline.Set {
		patch.FinalDeadline = &in.FinalDeadline.Value
	}
	if in.Version.Set && !in.Version.Null {
		patch.ExpectedVersion = &in.Version.Value
	}
	if len(verr.Fields) > 0 {
		return patch, verr
	}

	if notNull("processes", in.Processes.Set, in.Processes.Null) {
		steps := in.Processes.Value
		if err := check(s.validate, struct {
			Processes []models.ProcessInput `json:"processes" validate:"dive"`
		}{steps}); err != nil {
			return patch, err
		}
		if err := duplicateProcesses("processes", steps); err != nil {
			return patch, err
		}
		patch.ReplaceProcesses = true
		patch.Processes = toSteps(steps)
	}
	if notNull("materials", in.Materials.Set, in.Materials.Null) {
		lines := in.Materials.Value
		for i := range lines {
			lines[i].Description = strings.TrimSpace(lines[i].Description)
		}
		if err := check(s.validate, struct {
			Materials []models.MaterialInput `json:"materials" validate:"dive"`
		}{lines}); err != nil {
			return patch, err
		}
		patch.ReplaceMaterials = true
		patch.Materials = toLines(lines)
	}
	if len(verr.Fields) > 0 {
		return patch, verr
	}
	return patch, nil
}

// notify hands the event to the notifier without failing the request.
func (s *Orders) notify(ctx context.Context, e events.Event) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx), e); err != nil {
		metrics.ObserveEventFailure()
		s.log.Warn("order event not delivered", "type", e.Type, "order_id", e.OrderID, "err", err)
	}
}

func duplicateProcesses(field string, steps []models.ProcessInput) error {
	seen := make(map[models.ProcessName]bool, len(steps))
	for i, st := range steps {
		if seen[st.Name] {
			return apierror.Validation("Dados inválidos").
				Add(fmt.Sprintf("%s[%d].name", field, i), "processo repetido: "+string(st.Name))
		}
		seen[st.Name] = true
	}
	return nil
}

func toSteps(in []models.ProcessInput) []models.ProcessStep {
	out := make([]models.ProcessStep, 0, len(in))
	for _, st := range in {
		out = append(out, models.ProcessStep{Name: st.Name, PlannedDate: st.PlannedDate, Done: st.Done})
	}
	return out
}

func toLines(in []models.MaterialInput) []models.MaterialLine {
	out := make([]models.MaterialLine, 0, len(in))
	for _, m := range in {
		unit := m.Unit
		if unit == "" {
			unit = models.MaterialPieces
		}
		out = append(out, models.MaterialLine{Description: m.Description, Qty: m.Qty, Unit: unit, InStock: m.InStock})
	}
	return out
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return strconv.Itoa(apierror.From(err).Code())
}
