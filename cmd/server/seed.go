package main

import (
	"log"

	"gorm.io/gorm"

	"github.com/edulab-vn/topic-management-api/internal/entity"
	"github.com/edulab-vn/topic-management-api/pkg/hash"
)

var permissionNames = []string{
	"create_user",
	"create_many_user",
	"get_all_user",
	"get_all_topic",
	"get_all_topics_enrolled",
	"create_topic",
	"edit_topic",
	"delete_topic",
	"get_report_in_topic",
	"create_report_in_topic",
	"edit_report_in_topic",
	"delete_report_in_topic",
	"create_comment",
	"get_comment",
	"edit_comment",
	"delete_comment",
}

var roleGrants = map[string][]string{
	entity.RoleAdmin: {
		"create_user", "create_many_user", "get_all_user",
		"get_all_topic", "get_all_topics_enrolled",
		"create_topic", "edit_topic", "delete_topic",
		"get_report_in_topic", "get_comment",
	},
	entity.RoleTeacher: {
		"get_all_topic", "get_all_topics_enrolled",
		"create_topic", "edit_topic", "delete_topic",
		"get_report_in_topic", "create_report_in_topic",
		"edit_report_in_topic", "delete_report_in_topic",
		"create_comment", "get_comment", "edit_comment", "delete_comment",
	},
	entity.RoleStudent: {
		"get_all_topic", "get_all_topics_enrolled",
		"get_report_in_topic", "create_report_in_topic",
		"edit_report_in_topic", "delete_report_in_topic",
		"create_comment", "get_comment", "edit_comment", "delete_comment",
	},
}

// seed is idempotent: it only inserts roles, permissions and grants that are
// missing, so restarting the server never duplicates rows.
func seed(db *gorm.DB) error {
	for _, name := range []string{entity.RoleAdmin, entity.RoleTeacher, entity.RoleStudent} {
		var count int64
		if err := db.Model(&entity.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&entity.Role{Name: name}).Error; err != nil {
				return err
			}
		}
	}

	for _, name := range permissionNames {
		var count int64
		if err := db.Model(&entity.Permission{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&entity.Permission{Name: name}).Error; err != nil {
				return err
			}
		}
	}

	return seedGrants(db)
}

func seedGrants(db *gorm.DB) error {
	var roles []entity.Role
	if err := db.Find(&roles).Error; err != nil {
		return err
	}
	var permissions []entity.Permission
	if err := db.Find(&permissions).Error; err != nil {
		return err
	}

	permissionByName := make(map[string]entity.Permission, len(permissions))
	for _, p := range permissions {
		permissionByName[p.Name] = p
	}

	for _, role := range roles {
		for _, permissionName := range roleGrants[role.Name] {
			permission, ok := permissionByName[permissionName]
			if !ok {
				continue
			}

			var count int64
			err := db.Model(&entity.RolePermission{}).
				Where("role_id = ? AND permission_id = ?", role.ID, permission.ID).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count == 0 {
				grant := entity.RolePermission{RoleID: role.ID, PermissionID: permission.ID}
				if err := db.Create(&grant).Error; err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func seedAdminUser(db *gorm.DB) error {
	var adminRole entity.Role
	if err := db.Where("name = ?", entity.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&entity.User{}).Where("email = ?", "admin@example.com").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := hash.Password("admin123")
	if err != nil {
		return err
	}

	admin := entity.User{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: hashed,
		RoleID:   adminRole.ID,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("admin user seeded (admin@example.com / admin123)")
	return nil
}
