package main

import (
	"video-api/app"
)

func main() {
	app.RunWorker()
}
