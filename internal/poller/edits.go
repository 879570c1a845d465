package poller

import "idslab-dashboard/internal/models"

// Local edits applied after a successful backend write, so the UI sees the
// change before the next poll confirms it. Each edit builds new slices and
// leaves the previous snapshot untouched.

// AddScenario appends a created scenario
func (s *Service) AddScenario(sc models.AttackScenario) {
	s.Scenarios.Update(func(v models.ScenariosView) models.ScenariosView {
		out := make([]models.AttackScenario, 0, len(v.Scenarios)+1)
		out = append(out, v.Scenarios...)
		v.Scenarios = append(out, sc)
		return v
	})
}

// ReplaceScenario swaps in an updated scenario with the same ID
func (s *Service) ReplaceScenario(sc models.AttackScenario) {
	s.Scenarios.Update(func(v models.ScenariosView) models.ScenariosView {
		out := make([]models.AttackScenario, len(v.Scenarios))
		copy(out, v.Scenarios)
		for i := range out {
			if out[i].ID == sc.ID {
				out[i] = sc
			}
		}
		v.Scenarios = out
		return v
	})
}

// RemoveScenario drops a deleted scenario
func (s *Service) RemoveScenario(id string) {
	s.Scenarios.Update(func(v models.ScenariosView) models.ScenariosView {
		out := make([]models.AttackScenario, 0, len(v.Scenarios))
		for _, sc := range v.Scenarios {
			if sc.ID != id {
				out = append(out, sc)
			}
		}
		v.Scenarios = out
		return v
	})
}

// MarkScenarioRunning flags a scenario whose run was accepted
func (s *Service) MarkScenarioRunning(id string) {
	s.Scenarios.Update(func(v models.ScenariosView) models.ScenariosView {
		out := make([]models.AttackScenario, len(v.Scenarios))
		copy(out, v.Scenarios)
		for i := range out {
			if out[i].ID == id {
				out[i].Status = models.ScenarioRunning
			}
		}
		v.Scenarios = out
		return v
	})
}

// PatchIDSConfig applies fn to the detector configuration with the given ID
func (s *Service) PatchIDSConfig(id string, fn func(*models.IDSConfiguration)) {
	s.Lab.Update(func(v models.LabView) models.LabView {
		out := make([]models.IDSConfiguration, len(v.IDSConfigs))
		copy(out, v.IDSConfigs)
		for i := range out {
			if out[i].ID == id {
				fn(&out[i])
			}
		}
		v.IDSConfigs = out
		return v
	})
}

// PrependReport puts a newly generated report first
func (s *Service) PrependReport(r models.Report) {
	s.Reports.Update(func(v models.ReportsView) models.ReportsView {
		out := make([]models.Report, 0, len(v.Reports)+1)
		out = append(out, r)
		v.Reports = append(out, v.Reports...)
		return v
	})
}

// RemoveReport drops a deleted report
func (s *Service) RemoveReport(id string) {
	s.Reports.Update(func(v models.ReportsView) models.ReportsView {
		out := make([]models.Report, 0, len(v.Reports))
		for _, r := range v.Reports {
			if r.ID != id {
				out = append(out, r)
			}
		}
		v.Reports = out
		return v
	})
}
