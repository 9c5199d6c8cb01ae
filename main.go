package main

import (
	"log"
	"os"
	"time"

	"github.com/gbl08ma/keybox"
	"github.com/gbl08ma/sqalx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/underlx/servicealerts/compute"
	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/types"
	"github.com/underlx/servicealerts/utils"
)

const websiteURL = "https://perturbacoes.pt"

var (
	rdb           *sqlx.DB
	rootSqalxNode sqalx.Node
	secrets       *keybox.Keybox
	mainLog       = log.New(os.Stdout, "", log.Ldate|log.Ltime)
	webLog        = log.New(os.Stdout, "web", log.Ldate|log.Ltime)

	disruptionIndex *compute.DisruptionIndex

	// GitCommit is provided by govvv at compile-time
	GitCommit = "???"
	// BuildDate is provided by govvv at compile-time
	BuildDate = "???"
)

func main() {
	var err error
	mainLog.Println("Server starting, opening keybox...")
	secrets, err = keybox.Open(SecretsPath)
	if err != nil {
		mainLog.Fatalln(err)
	}
	mainLog.Println("Keybox opened")

	mainLog.Println("Opening database...")
	databaseURI, present := secrets.Get("databaseURI")
	if !present {
		mainLog.Fatalln("Database connection string not present in keybox")
	}
	rdb, err = sqlx.Open("postgres", databaseURI)
	if err != nil {
		mainLog.Fatalln(err)
	}
	defer rdb.Close()

	err = rdb.Ping()
	if err != nil {
		mainLog.Fatalln(err)
	}
	rdb.SetMaxOpenConns(MaxDBconnectionPoolSize)

	rootSqalxNode, err = sqalx.New(rdb)
	if err != nil {
		mainLog.Fatalln(err)
	}

	err = types.CreateSchema(rootSqalxNode)
	if err != nil {
		mainLog.Fatalln(err)
	}
	mainLog.Println("Database opened")

	adminKey, present := secrets.Get("adminKey")
	if !present {
		if !DEBUG {
			mainLog.Fatalln("Admin API key not present in keybox")
		}
		adminKey = utils.GenerateAdminKey()
		mainLog.Println("Generated admin API key", adminKey)
	}

	newsURL, present := secrets.Get("newsURL")
	if !present {
		newsURL = "https://www.metrolisboa.pt/feed/"
	}
	mlAccessToken, _ := secrets.Get("mlAccessToken")

	disruptionIndex = compute.NewDisruptionIndex()

	engine := reconcile.NewEngine(reconcile.NewSQLStore(rootSqalxNode),
		log.New(os.Stdout, "engine", log.Ldate|log.Ltime),
		SetUpParsers()...)
	engine.RejectedDeleteAfter = RejectedDeleteAfter
	engine.OnCommit = disruptionIndex.Refresh

	disruptions, err := engine.Disruptions()
	if err != nil {
		mainLog.Fatalln(err)
	}
	disruptionIndex.Refresh(disruptions)

	SetUpScrapers(engine, newsURL, mlAccessToken)
	defer TearDownScrapers()

	go StatsSender(engine)
	go APIserver(engine, disruptionIndex, adminKey)

	mainLog.Println("Running commit", GitCommit, "built", BuildDate)

	for {
		if DEBUG {
			printPendingReview(rootSqalxNode)
		}
		time.Sleep(1 * time.Minute)
	}
}

func printPendingReview(node sqalx.Node) {
	tx, err := node.Beginx()
	if err != nil {
		mainLog.Println(err)
		return
	}
	defer tx.Commit() // read-only tx

	provisional, err := types.GetDisruptionsInState(tx, types.StateProvisional)
	if err != nil {
		mainLog.Println(err)
		return
	}
	expiring, err := types.GetRejectedScheduledBefore(tx, time.Now().Add(24*time.Hour))
	if err != nil {
		mainLog.Println(err)
		return
	}
	mainLog.Println(len(provisional), "provisional disruptions pending review,",
		len(expiring), "rejected notices to be forgotten in the next 24 hours,",
		disruptionIndex.Len(), "disruptions attachable to departures")
}
