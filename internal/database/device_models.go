package database

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/inkfleet/inkfleet/internal/logging"
)

//go:embed device_models.yaml
var deviceModelCatalog []byte

type deviceModelSpec struct {
	ModelName    string `yaml:"model_name"`
	DisplayName  string `yaml:"display_name"`
	ScreenWidth  int    `yaml:"screen_width"`
	ScreenHeight int    `yaml:"screen_height"`
	BitDepth     int    `yaml:"bit_depth"`
	MinFirmware  string `yaml:"min_firmware"`
}

// DefaultModelName is assumed for devices that never report a model.
const DefaultModelName = "og_800x480"

// SeedDeviceModels loads the embedded model catalog and upserts it into the
// device_models table. Existing rows are updated in place so catalog changes
// ship with the binary.
func SeedDeviceModels(db *gorm.DB) error {
	var specs []deviceModelSpec
	if err := yaml.Unmarshal(deviceModelCatalog, &specs); err != nil {
		return fmt.Errorf("failed to parse device model catalog: %w", err)
	}

	for _, spec := range specs {
		var existing DeviceModel
		err := db.Where("model_name = ?", spec.ModelName).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			model := DeviceModel{
				ModelName:    spec.ModelName,
				DisplayName:  spec.DisplayName,
				ScreenWidth:  spec.ScreenWidth,
				ScreenHeight: spec.ScreenHeight,
				BitDepth:     spec.BitDepth,
				MinFirmware:  spec.MinFirmware,
			}
			if err := db.Create(&model).Error; err != nil {
				return fmt.Errorf("failed to create device model %s: %w", spec.ModelName, err)
			}
			continue
		}
		if err != nil {
			return err
		}

		existing.DisplayName = spec.DisplayName
		existing.ScreenWidth = spec.ScreenWidth
		existing.ScreenHeight = spec.ScreenHeight
		existing.BitDepth = spec.BitDepth
		existing.MinFirmware = spec.MinFirmware
		if err := db.Save(&existing).Error; err != nil {
			return fmt.Errorf("failed to update device model %s: %w", spec.ModelName, err)
		}
	}

	logging.InfoWithComponent(logging.ComponentDatabase, "Device model catalog seeded", "models", len(specs))
	return nil
}
