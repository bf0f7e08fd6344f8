package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"exam:join",
		"attempt:submit",
		"attempt:finalize",
		"attempt:view-own",
	},
	"teacher": {
		"exam:create",
		"exam:view-own",
		"exam:delete-own",
		"question:create",
		"question:delete",
		"attempt:view-all",
	},
	"admin": {
		"*", // everything
	},
}
