package sql

import (
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
)

type (
	User struct {
		ID    int64
		Name  string
		Email *string
		Age   int
	}
	Post struct {
		ID     int64
		UserID int64
		Title  string
	}
	Employee struct {
		ID        int64
		Name      string
		ManagerID int64
	}
	Account struct {
		ID    int64 `db:"account_id,identity"`
		Owner string
	}
)

func (Account) TableName() string { return "tbl_accounts" }

var (
	UserID    = expr.F[User, int64]("ID")
	UserName  = expr.S[User]("Name")
	UserEmail = expr.NS[User]("Email")
	UserAge   = expr.F[User, int]("Age")

	PostID     = expr.F[Post, int64]("ID")
	PostUserID = expr.F[Post, int64]("UserID")
	PostTitle  = expr.S[Post]("Title")

	EmployeeID        = expr.F[Employee, int64]("ID")
	EmployeeName      = expr.S[Employee]("Name")
	EmployeeManagerID = expr.F[Employee, int64]("ManagerID")
)

var (
	pgCaps      = dialect.Static{Name: dialect.Postgres, Pluralize: true}
	mssqlCaps   = dialect.Static{Name: dialect.SQLServer, Pluralize: true}
	mysqlCaps   = dialect.Static{Name: dialect.MySQL, Pluralize: true}
	sqliteCaps  = dialect.Static{Name: dialect.SQLite, Pluralize: true}
	unknownCaps = dialect.Static{Name: "oracle", Pluralize: true}
)
