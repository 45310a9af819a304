package main

import "energy_study_backend/internal/app"

func main() {
	app.Run()
}
