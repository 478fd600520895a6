package mealplans

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	_ menusRepo = (*menusRepoMock)(nil)
	_ plansRepo = (*plansRepoMock)(nil)
)

type menusRepoMock struct {
	Menus  map[int]*Menu
	mutex  sync.Mutex
	nextID int

	// menu ids currently referenced by plan items, used to surface
	// the FK violation the real schema would raise on delete
	Referenced map[int]bool
}

func newMenusRepoMock() *menusRepoMock {
	return &menusRepoMock{
		Menus:      make(map[int]*Menu),
		Referenced: make(map[int]bool),
		nextID:     1,
	}
}

func (r *menusRepoMock) Add(_ context.Context, menu Menu) (*Menu, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	menu.ID = r.nextID
	r.nextID++
	r.Menus[menu.ID] = &menu
	return &menu, nil
}

func (r *menusRepoMock) Get(_ context.Context, id int) (*Menu, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	menu, ok := r.Menus[id]
	if !ok {
		return nil, ErrMenuNotFound
	}
	return menu, nil
}

func (r *menusRepoMock) List(_ context.Context, trainerID int) ([]Menu, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	menus := make([]Menu, 0)
	for _, m := range r.Menus {
		if m.TrainerID == trainerID {
			menus = append(menus, *m)
		}
	}
	return menus, nil
}

func (r *menusRepoMock) Update(_ context.Context, menu *Menu) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.Menus[menu.ID]
	if !ok || existing.TrainerID != menu.TrainerID {
		return ErrMenuNotFound
	}
	existing.Name = menu.Name
	existing.Calories = menu.Calories
	existing.ProteinGrams = menu.ProteinGrams
	existing.CarbsGrams = menu.CarbsGrams
	existing.FatGrams = menu.FatGrams
	return nil
}

func (r *menusRepoMock) Delete(_ context.Context, trainerID, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.Menus[id]
	if !ok || existing.TrainerID != trainerID {
		return ErrMenuNotFound
	}
	if r.Referenced[id] {
		return &pgconn.PgError{Code: "23503"}
	}
	delete(r.Menus, id)
	return nil
}

type plansRepoMock struct {
	Plans map[int]*MenuPlan
	Items map[int]*MenuPlanItemDetail
	mutex sync.Mutex

	nextPlanID int
	nextItemID int
}

func newPlansRepoMock() *plansRepoMock {
	return &plansRepoMock{
		Plans:      make(map[int]*MenuPlan),
		Items:      make(map[int]*MenuPlanItemDetail),
		nextPlanID: 1,
		nextItemID: 1,
	}
}

func (r *plansRepoMock) Add(_ context.Context, plan MenuPlan) (*MenuPlan, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	plan.ID = r.nextPlanID
	r.nextPlanID++
	r.Plans[plan.ID] = &plan
	return &plan, nil
}

func (r *plansRepoMock) Get(_ context.Context, id int) (*MenuPlan, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	plan, ok := r.Plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func (r *plansRepoMock) ListForTrainer(_ context.Context, trainerID int) ([]MenuPlan, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	plans := make([]MenuPlan, 0)
	for _, p := range r.Plans {
		if p.TrainerID == trainerID {
			plans = append(plans, *p)
		}
	}
	return plans, nil
}

func (r *plansRepoMock) ListForClient(_ context.Context, clientID int) ([]MenuPlan, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	plans := make([]MenuPlan, 0)
	for _, p := range r.Plans {
		if p.ClientID != nil && *p.ClientID == clientID {
			plans = append(plans, *p)
		}
	}
	return plans, nil
}

func (r *plansRepoMock) Delete(_ context.Context, trainerID, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.Plans[id]
	if !ok || existing.TrainerID != trainerID {
		return ErrPlanNotFound
	}
	delete(r.Plans, id)
	for itemID, item := range r.Items {
		if item.PlanID == id {
			delete(r.Items, itemID)
		}
	}
	return nil
}

func (r *plansRepoMock) Assign(_ context.Context, trainerID, planID int, clientID *int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.Plans[planID]
	if !ok || existing.TrainerID != trainerID {
		return ErrPlanNotFound
	}
	existing.ClientID = clientID
	return nil
}

func (r *plansRepoMock) AddItem(_ context.Context, item MenuPlanItem) (*MenuPlanItem, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item.ID = r.nextItemID
	r.nextItemID++
	r.Items[item.ID] = &MenuPlanItemDetail{MenuPlanItem: item}
	return &item, nil
}

func (r *plansRepoMock) RemoveItem(_ context.Context, planID, itemID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, ok := r.Items[itemID]
	if !ok || item.PlanID != planID {
		return ErrItemNotFound
	}
	delete(r.Items, itemID)
	return nil
}

func (r *plansRepoMock) ListItems(_ context.Context, planID int) ([]MenuPlanItemDetail, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	items := make([]MenuPlanItemDetail, 0)
	for _, item := range r.Items {
		if item.PlanID == planID {
			items = append(items, *item)
		}
	}
	return items, nil
}
