package main

import (
	"net/http"

	"github.com/rs/cors"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	api := func(next http.HandlerFunc) http.Handler {
		return noCache(app.timeout(next))
	}

	mux.Handle("GET /api/healthy", api(app.healthy))
	mux.Handle("GET /api/exercises", api(app.exercisesGET))

	mux.Handle("GET /api/workouts", api(app.workoutsGET))
	mux.Handle("POST /api/workouts", api(app.workoutsPOST))
	mux.Handle("GET /api/workouts/{id}", api(app.workoutGET))
	mux.Handle("GET /api/share/{code}", api(app.shareGET))

	mux.Handle("GET /api/strategies", api(app.strategiesGET))
	mux.Handle("POST /api/weeks", api(app.weeksPOST))
	mux.Handle("GET /api/weeks/{id}", api(app.weekGET))
	mux.Handle("POST /api/weeks/{id}/days/{day}/regenerate", api(app.dayRegeneratePOST))
	mux.Handle("POST /api/weeks/{id}/days/{day}/complete", api(app.dayCompletePOST))
	mux.Handle("GET /api/weeks/{id}/overview", api(app.weekOverviewGET))

	mux.Handle("/", api(app.notFound))

	c := cors.New(cors.Options{ //nolint:exhaustruct // defaults are fine for the rest.
		AllowedOrigins: app.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600, //nolint:mnd // ten minutes.
	})

	return app.recoverPanic(app.logAndTraceRequest(secureHeaders(c.Handler(mux))))
}
