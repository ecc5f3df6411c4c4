package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"kogma/internal/apierror"
	"kogma/internal/auth"
	"kogma/internal/cnpj"
	"kogma/models"

	"github.com/go-playground/validator/v10"
)

var companyMessages = messages{
	notFound: "Cliente não encontrado",
	conflict: "CNPJ já cadastrado",
}

// Companies is the company directory.
type Companies struct {
	store      CompanyStore
	validate   *validator.Validate
	strictCNPJ bool
	log        *slog.Logger
}

func NewCompanies(store CompanyStore, validate *validator.Validate, strictCNPJ bool, log *slog.Logger) *Companies {
	if log == nil {
		log = slog.Default()
	}
	return &Companies{store: store, validate: validate, strictCNPJ: strictCNPJ, log: log.With("svc", "companies")}
}

func (s *Companies) List(ctx context.Context, p auth.Principal, q string) ([]models.Company, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	companies, err := s.store.ListCompanies(ctx, q)
	return companies, storeError(err, companyMessages)
}

func (s *Companies) Get(ctx context.Context, p auth.Principal, id int64) (*models.Company, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	c, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return nil, storeError(err, companyMessages)
	}
	return c, nil
}

func (s *Companies) Create(ctx context.Context, p auth.Principal, in models.CreateCompanyInput) (int64, error) {
	if err := requireActive(p); err != nil {
		return 0, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := check(s.validate, in); err != nil {
		return 0, err
	}
	doc, err := s.cnpj(in.CNPJ)
	if err != nil {
		return 0, err
	}

	c := &models.Company{Name: in.Name, CNPJ: doc}
	if err := s.store.CreateCompany(ctx, c); err != nil {
		return 0, storeError(err, companyMessages)
	}
	s.log.Info("company created", "company_id", c.ID, "by", p.ID)
	return c.ID, nil
}

// Patch changes only the fields present in the input. A null or empty cnpj
// clears it.
func (s *Companies) Patch(ctx context.Context, p auth.Principal, id int64, in models.PatchCompanyInput) error {
	if err := requireActive(p); err != nil {
		return err
	}

	verr := apierror.Validation("Dados inválidos")
	var name *string
	if in.Name.Set {
		n := strings.TrimSpace(in.Name.Value)
		switch {
		case in.Name.Null || n == "":
			verr.Add("name", "campo obrigatório")
		case utf8.RuneCountInString(n) > 190:
			verr.Add("name", "valor muito longo, máximo 190")
		default:
			name = &n
		}
	}
	var doc *string
	if in.CNPJ.Set && !in.CNPJ.Null {
		d, err := s.cnpj(in.CNPJ.Value)
		if err != nil {
			return err
		}
		doc = d
	}
	if len(verr.Fields) > 0 {
		return verr
	}

	c, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return storeError(err, companyMessages)
	}
	if name != nil {
		c.Name = *name
	}
	if in.CNPJ.Set {
		c.CNPJ = doc
	}
	if err := s.store.UpdateCompany(ctx, c); err != nil {
		return storeError(err, companyMessages)
	}
	return nil
}

func (s *Companies) cnpj(raw string) (*string, error) {
	doc, err := cnpj.ForStorage(raw, s.strictCNPJ)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindValidation, err, "CNPJ inválido").Add("cnpj", "CNPJ inválido")
	}
	return doc, nil
}
