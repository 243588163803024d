/*
Copyright 2024 TGFC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fanops

import (
	"context"

	"github.com/tgfc/fanops/model"
)

func (f *Fanops) CreateDomainFilter(ctx context.Context, domain, category string) (*model.DomainFilter, error) {
	return f.datasource.CreateDomainFilter(ctx, &model.DomainFilter{Domain: domain, Category: category})
}

func (f *Fanops) GetAllDomainFilters(ctx context.Context) ([]*model.DomainFilter, error) {
	return f.datasource.GetAllDomainFilters(ctx)
}

func (f *Fanops) DeleteDomainFilter(ctx context.Context, id string) error {
	return f.datasource.DeleteDomainFilter(ctx, id)
}
