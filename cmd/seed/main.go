// Seed tool: fills a database with fake professionals, patients, and a
// few months of completed appointments so the dashboard has something
// to show. Run against a fresh database; re-running duplicates nothing
// financial (completions are idempotency-keyed) but does add people.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/solhealth/clinic-core/activity"
	"github.com/solhealth/clinic-core/billing"
	"github.com/solhealth/clinic-core/ledger"
	"github.com/solhealth/clinic-core/store/sqlite"
	"github.com/solhealth/clinic-core/workflow"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	dbPath := flag.String("db", "./data/clinic.db", "SQLite database path")
	professionals := flag.Int("professionals", 8, "number of professionals")
	patients := flag.Int("patients", 40, "number of patients")
	weeks := flag.Int("weeks", 12, "weeks of appointment history")
	flag.Parse()

	log.Println("seed starting")

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	gofakeit.Seed(time.Now().UnixNano())

	ctx := context.Background()
	engine := billing.NewEngine(ledger.New(store), store, activity.NewFeedNotifier(store), billing.Options{})

	pros, err := seedProfessionals(ctx, store, *professionals)
	if err != nil {
		log.Fatalf("seed professionals: %v", err)
	}
	pats, err := seedPatients(ctx, store, *patients)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(ctx, store, engine, pros, pats, *weeks); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedProfessionals(ctx context.Context, store *sqlite.Store, count int) ([]billing.ProfessionalAccount, error) {
	log.Printf("seeding %d professionals", count)

	// Typical clinic commission rates.
	rates := []float64{15, 20, 25, 30}

	pros := make([]billing.ProfessionalAccount, 0, count)
	for i := 0; i < count; i++ {
		p := billing.ProfessionalAccount{
			ID:         ledger.ProfessionalID(uuid.NewString()),
			Name:       gofakeit.Name(),
			Commission: billing.NewPercent(rates[gofakeit.Number(0, len(rates)-1)]),
			CreatedAt:  time.Now().UTC(),
		}
		if err := store.SaveProfessional(ctx, p); err != nil {
			return nil, err
		}
		pros = append(pros, p)
	}
	return pros, nil
}

func seedPatients(ctx context.Context, store *sqlite.Store, count int) ([]workflow.Patient, error) {
	log.Printf("seeding %d patients", count)

	frequencies := []workflow.SessionFrequency{
		workflow.FrequencyWeekly,
		workflow.FrequencyBiweekly,
		workflow.FrequencyMonthly,
	}

	pats := make([]workflow.Patient, 0, count)
	for i := 0; i < count; i++ {
		p := workflow.Patient{
			ID:               ledger.PatientID(uuid.NewString()),
			Name:             gofakeit.Name(),
			Status:           workflow.PatientActive,
			SessionFrequency: frequencies[gofakeit.Number(0, len(frequencies)-1)],
			CreatedAt:        time.Now().UTC(),
		}
		now := time.Now().UTC()
		p.ActivatedAt = &now
		if err := store.SavePatient(ctx, p); err != nil {
			return nil, err
		}
		pats = append(pats, p)
	}
	return pats, nil
}

func seedAppointments(
	ctx context.Context,
	store *sqlite.Store,
	engine *billing.Engine,
	pros []billing.ProfessionalAccount,
	pats []workflow.Patient,
	weeks int,
) error {
	log.Printf("seeding %d weeks of appointments", weeks)

	count := 0
	for w := 0; w < weeks; w++ {
		day := time.Now().UTC().AddDate(0, 0, -7*(weeks-w))

		for _, pat := range pats {
			// Roughly honor each patient's frequency.
			switch pat.SessionFrequency {
			case workflow.FrequencyBiweekly:
				if w%2 != 0 {
					continue
				}
			case workflow.FrequencyMonthly:
				if w%4 != 0 {
					continue
				}
			}

			pro := pros[gofakeit.Number(0, len(pros)-1)]
			cost := float64(gofakeit.Number(40, 120))

			appt := billing.Appointment{
				ID:             ledger.AppointmentID(uuid.NewString()),
				PatientID:      pat.ID,
				ProfessionalID: pro.ID,
				Date:           day,
				StartTime:      "10:00",
				EndTime:        "11:00",
				Type:           billing.TypeRegular,
				Status:         billing.StatusScheduled,
				SessionCost:    ledger.NewMoney(cost),
			}
			if err := store.SaveAppointment(ctx, appt); err != nil {
				return err
			}

			// ~90% attendance.
			attended := gofakeit.Number(0, 9) > 0
			completed, err := store.CompleteAppointment(ctx, appt.ID,
				attended, ledger.NewMoney(cost), ledger.Zero(), day.Add(11*time.Hour))
			if err != nil {
				return err
			}
			if _, err := engine.OnAppointmentCompleted(ctx, *completed); err != nil {
				return err
			}
			count++
		}
	}

	log.Printf("seeded %d completed appointments", count)
	return nil
}
